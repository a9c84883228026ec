package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"
)

// Config holds the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Face    FaceConfig    `mapstructure:"face"`
	Camera  CameraConfig  `mapstructure:"camera"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	I18n    I18nConfig    `mapstructure:"i18n"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	SnapshotDir   string `mapstructure:"snapshot_dir"`
	SnapshotURL   string `mapstructure:"snapshot_url"`
	SessionSecret string `mapstructure:"session_secret"`
	CORSOrigins   string `mapstructure:"cors_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig holds database settings.
type DBConfig struct {
	File string `mapstructure:"file"`
}

// FaceConfig holds settings for the face recognition cascade.
type FaceConfig struct {
	Detector  DetectorConfig  `mapstructure:"detector"`
	Deep      DeepConfig      `mapstructure:"deep"`
	Geometric GeometricConfig `mapstructure:"geometric"`
	Histogram HistogramConfig `mapstructure:"histogram"`
}

// DetectorConfig holds the Haar cascade face detector parameters.
type DetectorConfig struct {
	CascadeFile   string  `mapstructure:"cascade_file"`
	ScaleFactor   float64 `mapstructure:"scale_factor"`
	MinNeighbors  int     `mapstructure:"min_neighbors"`
	MinSizeWidth  int     `mapstructure:"min_size_width"`
	MinSizeHeight int     `mapstructure:"min_size_height"`
}

// DeepConfig holds settings for the CNN classifier backend.
type DeepConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ModelFile    string  `mapstructure:"model_file"`
	LabelsFile   string  `mapstructure:"labels_file"`
	MatchMinConf float64 `mapstructure:"match_min_confidence"`
	SoleMinConf  float64 `mapstructure:"sole_min_confidence"`
	InputSize    int     `mapstructure:"input_size"`
}

// GeometricConfig holds settings for the dlib embedding backend.
type GeometricConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	ModelsDir string  `mapstructure:"models_dir"`
	Threshold float64 `mapstructure:"threshold"`
}

// HistogramConfig holds settings for the pixel-histogram fallback backend.
type HistogramConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	FaceSize  int     `mapstructure:"face_size"`
	Threshold float64 `mapstructure:"threshold"`
}

// CameraConfig holds settings for live camera capture.
type CameraConfig struct {
	DeviceIndex     int     `mapstructure:"device_index"`
	FrameWidth      int     `mapstructure:"frame_width"`
	FrameHeight     int     `mapstructure:"frame_height"`
	FPS             int     `mapstructure:"fps"`
	IntervalSeconds float64 `mapstructure:"interval_seconds"`
}

// MQTTConfig holds settings for the optional MQTT event publisher.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// I18nConfig holds localization settings.
type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
	LocalesDir      string `mapstructure:"locales_dir"`
}

// CleanupConfig holds settings for automatic snapshot cleanup.
type CleanupConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// Load reads the configuration from file, environment variables and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Environment variables override the file.
	v.AutomaticEnv()
	v.SetEnvPrefix("SMARTCOURSES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.snapshot_dir", "data/snapshots")
	v.SetDefault("server.snapshot_url", "/snapshots")
	v.SetDefault("server.session_secret", "smartcourses-dev-secret")
	v.SetDefault("server.cors_origins", "*")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	// DB
	v.SetDefault("db.file", "data/smartcourses.db")

	// Face detector
	v.SetDefault("face.detector.cascade_file", "models/haarcascade_frontalface_default.xml")
	v.SetDefault("face.detector.scale_factor", 1.1)
	v.SetDefault("face.detector.min_neighbors", 5)
	v.SetDefault("face.detector.min_size_width", 30)
	v.SetDefault("face.detector.min_size_height", 30)

	// Deep backend
	v.SetDefault("face.deep.enabled", true)
	v.SetDefault("face.deep.model_file", "models/face_recognition_model.onnx")
	v.SetDefault("face.deep.labels_file", "models/labels.json")
	v.SetDefault("face.deep.match_min_confidence", 0.5)
	v.SetDefault("face.deep.sole_min_confidence", 0.8)
	v.SetDefault("face.deep.input_size", 224)

	// Geometric backend
	v.SetDefault("face.geometric.enabled", true)
	v.SetDefault("face.geometric.models_dir", "models/dlib")
	v.SetDefault("face.geometric.threshold", 0.6)

	// Histogram backend
	v.SetDefault("face.histogram.enabled", true)
	v.SetDefault("face.histogram.face_size", 128)
	v.SetDefault("face.histogram.threshold", 0.4)

	// Camera
	v.SetDefault("camera.device_index", 0)
	v.SetDefault("camera.frame_width", 640)
	v.SetDefault("camera.frame_height", 480)
	v.SetDefault("camera.fps", 30)
	v.SetDefault("camera.interval_seconds", 0.5)

	// MQTT
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "smartcourses")
	v.SetDefault("mqtt.topic", "smartcourses/recognition")

	// I18n
	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.locales_dir", "web/locales")

	// Cleanup
	v.SetDefault("cleanup.retention_days", 14)
}

func ensureDirectories(cfg *Config) error {
	dirs := []string{cfg.Server.SnapshotDir, filepath.Dir(cfg.DB.File)}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}
