package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chaimanaouali/SmartCourses/config"
	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Client publishes recognition events to an MQTT broker so classroom
// dashboards and attendance consumers can react without polling.
type Client struct {
	config config.MQTTConfig
	client mqtt.Client
}

// RecognitionMessage is the payload published for every recognition
// attempt.
type RecognitionMessage struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Matched    bool      `json:"matched"`
	Username   string    `json:"username,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Backend    string    `json:"backend,omitempty"`
}

// NewClient creates a new MQTT client.
func NewClient(cfg config.MQTTConfig) *Client {
	return &Client{config: cfg}
}

// Start connects the client to the broker. A disabled client starts
// successfully and publishes nothing.
func (c *Client) Start() error {
	if !c.config.Enabled {
		log.Info("MQTT client is disabled in configuration")
		return nil
	}

	opts := mqtt.NewClientOptions()

	brokerURL := fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(c.config.ClientID)

	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}

	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetConnectionLostHandler(c.connectionLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	c.client = mqtt.NewClient(opts)

	log.Infof("Connecting to MQTT broker at %s", brokerURL)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker: %v", token.Error())
		return token.Error()
	}

	log.Info("MQTT client connected successfully")
	return nil
}

// Stop disconnects the client.
func (c *Client) Stop() {
	if c.client != nil && c.client.IsConnected() {
		log.Info("Disconnecting MQTT client...")
		c.client.Disconnect(250)
		log.Info("MQTT client disconnected")
	}
}

// IsConnected reports whether the client holds a live connection.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

func (c *Client) onConnectHandler(client mqtt.Client) {
	log.Infof("Connected to MQTT broker at %s:%d", c.config.Broker, c.config.Port)
}

func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Errorf("MQTT connection lost: %v", err)
}

// PublishRecognition publishes a recognition result on the configured
// topic. Publishing while disconnected is logged and dropped; the
// recognition pipeline never depends on broker availability.
func (c *Client) PublishRecognition(source string, result *recognition.Result) {
	if !c.config.Enabled {
		return
	}
	if !c.IsConnected() {
		log.Debug("MQTT client not connected, dropping recognition event")
		return
	}

	msg := RecognitionMessage{
		Timestamp: time.Now(),
		Source:    source,
		Matched:   result.Matched,
	}
	if result.Matched {
		msg.Username = result.Username
		msg.Confidence = result.Confidence
		msg.Backend = result.Backend
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal recognition event for MQTT: %v", err)
		return
	}

	token := c.client.Publish(c.config.Topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Errorf("Failed to publish recognition event to topic %s: %v", c.config.Topic, token.Error())
		return
	}
	log.Debugf("Published recognition event to topic: %s", c.config.Topic)
}
