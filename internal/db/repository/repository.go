package repository

import (
	"errors"
	"time"

	"github.com/chaimanaouali/SmartCourses/internal/core/models"
	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository defines the database operations the handlers and the
// recognition service depend on.
type Repository interface {
	recognition.EncodingStore

	// User methods
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUsers(limit, offset int) ([]models.User, int64, error)
	SaveUser(user *models.User) error
	DeleteUser(id uint) error

	// Encoding methods beyond the EncodingStore interface
	DeleteEncoding(userID uint) error
	UpdateEncodingUsername(userID uint, username string) error

	// Event methods
	GetEvents(limit, offset int) ([]models.RecognitionEvent, int64, error)
	SaveEvent(event *models.RecognitionEvent) error
	DeleteEventsBefore(cutoff time.Time) (int64, error)

	// Statistics
	GetStatistics() (models.Statistics, error)
}

// SQLiteRepository implements Repository on GORM/SQLite.
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a new SQLite repository instance.
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// User methods

// GetUserByID fetches a user by primary key. A missing user is
// (nil, nil), not an error.
func (r *SQLiteRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.Preload("Profile").First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// GetUserByUsername fetches a user by their unique username.
func (r *SQLiteRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	result := r.db.Preload("Profile").Where("username = ?", username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// GetUsers fetches users with pagination.
func (r *SQLiteRepository) GetUsers(limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	r.db.Model(&models.User{}).Count(&total)
	result := r.db.Preload("Profile").Order("username ASC").Limit(limit).Offset(offset).Find(&users)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return users, total, nil
}

// SaveUser creates or updates a user.
func (r *SQLiteRepository) SaveUser(user *models.User) error {
	return r.db.Save(user).Error
}

// DeleteUser removes a user; the profile cascades.
func (r *SQLiteRepository) DeleteUser(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// Encoding methods

// ListEncodings loads every stored face encoding together with the
// owning username. Profiles with no registered face are skipped;
// profiles whose stored JSON no longer parses are skipped with a
// warning rather than failing the whole listing.
func (r *SQLiteRepository) ListEncodings() ([]recognition.StoredEncoding, error) {
	var profiles []models.UserProfile
	result := r.db.Preload("User").Where("face_encoding IS NOT NULL").Find(&profiles)
	if result.Error != nil {
		return nil, result.Error
	}

	encodings := make([]recognition.StoredEncoding, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if len(p.FaceEncoding) == 0 {
			continue
		}
		enc, err := recognition.ParseEncoding(p.FaceEncoding)
		if err != nil {
			log.WithError(err).Warnf("Skipping unparseable face encoding for user %d", p.UserID)
			continue
		}
		encodings = append(encodings, recognition.StoredEncoding{
			UserID:   p.UserID,
			Username: p.User.Username,
			Encoding: *enc,
		})
	}
	return encodings, nil
}

// SaveEncoding persists the encoding JSON on the user's profile,
// creating the profile row when the user has none yet.
func (r *SQLiteRepository) SaveEncoding(userID uint, enc *recognition.Encoding) error {
	data, err := enc.Marshal()
	if err != nil {
		return err
	}

	now := time.Now()
	var profile models.UserProfile
	result := r.db.Where("user_id = ?", userID).First(&profile)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		profile = models.UserProfile{UserID: userID}
	}
	profile.FaceEncoding = datatypes.JSON(data)
	profile.RegisteredAt = &now
	return r.db.Save(&profile).Error
}

// DeleteEncoding clears the stored face for a user without removing
// the profile row.
func (r *SQLiteRepository) DeleteEncoding(userID uint) error {
	return r.db.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"face_encoding": nil, "registered_at": nil}).Error
}

// UpdateEncodingUsername rewrites the username embedded in a stored
// deep-classifier encoding. Encodings of other models carry no
// username and are left untouched.
func (r *SQLiteRepository) UpdateEncodingUsername(userID uint, username string) error {
	var profile models.UserProfile
	result := r.db.Where("user_id = ?", userID).First(&profile)
	if result.Error != nil {
		return result.Error
	}
	if len(profile.FaceEncoding) == 0 {
		return gorm.ErrRecordNotFound
	}

	enc, err := recognition.ParseEncoding(profile.FaceEncoding)
	if err != nil {
		return err
	}
	if enc.Model != recognition.ModelDeep {
		return nil
	}
	enc.Username = username

	data, err := enc.Marshal()
	if err != nil {
		return err
	}
	profile.FaceEncoding = datatypes.JSON(data)
	return r.db.Save(&profile).Error
}

// Event methods

// GetEvents fetches recognition events newest-first with pagination.
func (r *SQLiteRepository) GetEvents(limit, offset int) ([]models.RecognitionEvent, int64, error) {
	var events []models.RecognitionEvent
	var total int64

	r.db.Model(&models.RecognitionEvent{}).Count(&total)
	result := r.db.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&events)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return events, total, nil
}

// SaveEvent persists a recognition event.
func (r *SQLiteRepository) SaveEvent(event *models.RecognitionEvent) error {
	return r.db.Save(event).Error
}

// DeleteEventsBefore removes events older than the cutoff and returns
// how many rows were deleted.
func (r *SQLiteRepository) DeleteEventsBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", cutoff).Delete(&models.RecognitionEvent{})
	return result.RowsAffected, result.Error
}

// Statistics

// GetStatistics aggregates counters for the system status endpoint.
func (r *SQLiteRepository) GetStatistics() (models.Statistics, error) {
	var stats models.Statistics

	if err := r.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.UserProfile{}).
		Where("face_encoding IS NOT NULL").Count(&stats.RegisteredFaces).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.RecognitionEvent{}).Count(&stats.TotalEvents).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.RecognitionEvent{}).
		Where("matched_user != ''").Count(&stats.MatchedEvents).Error; err != nil {
		return stats, err
	}

	var last models.RecognitionEvent
	if err := r.db.Order("timestamp DESC").First(&last).Error; err == nil {
		stats.LastEvent = last.Timestamp
	}
	return stats, nil
}
