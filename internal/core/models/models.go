package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents a platform account that can log in via face recognition.
type User struct {
	gorm.Model
	Username string      `gorm:"uniqueIndex;not null"`
	Email    string      `gorm:"index"`
	Profile  UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

// UserProfile carries the persisted face encoding for a user.
// FaceEncoding stores the tagged-variant JSON record produced by the
// recognition backends; it is opaque to everything except the backend
// that produced it. A NULL value means no face is registered.
type UserProfile struct {
	gorm.Model
	UserID       uint           `gorm:"uniqueIndex;not null"`
	FaceEncoding datatypes.JSON `gorm:"type:json"`
	RegisteredAt *time.Time
	User         *User `gorm:"foreignKey:UserID"`
}

// RecognitionEvent records one recognition attempt and its outcome.
type RecognitionEvent struct {
	gorm.Model
	Timestamp    time.Time `gorm:"index"`
	Source       string    `gorm:"index"` // "upload", "camera", "login"
	Backend      string    `gorm:"index"` // backend that produced the result, empty on miss
	MatchedUser  string    `gorm:"index"` // username, empty when not recognized
	Confidence   float64
	SnapshotPath string // relative path under the snapshot dir, optional
}

// Statistics summarizes recognition activity for the system endpoint.
type Statistics struct {
	TotalUsers      int64     `json:"total_users"`
	RegisteredFaces int64     `json:"registered_faces"`
	TotalEvents     int64     `json:"total_events"`
	MatchedEvents   int64     `json:"matched_events"`
	LastEvent       time.Time `json:"last_event"`
}
