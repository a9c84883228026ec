package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/chaimanaouali/SmartCourses/internal/core/models"
	"github.com/chaimanaouali/SmartCourses/internal/db/repository"

	log "github.com/sirupsen/logrus"
)

// Service deletes recognition events and their snapshot files once they
// age past the retention period.
type Service struct {
	repo          repository.Repository
	retentionDays int
	snapshotDir   string
	checkInterval time.Duration
	stopChan      chan struct{}
}

// NewService creates a cleanup service. Returns nil when cleanup is
// disabled; every method tolerates a nil receiver.
func NewService(repo repository.Repository, retentionDays int, snapshotDir string, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0).")
		return nil
	}
	if repo == nil {
		log.Error("Cannot initialize cleanup service: repository is nil")
		return nil
	}
	log.Infof("Initializing cleanup service: RetentionDays=%d, SnapshotDir='%s', CheckInterval=%s",
		retentionDays, snapshotDir, checkInterval)
	return &Service{
		repo:          repo,
		retentionDays: retentionDays,
		snapshotDir:   snapshotDir,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the
// cleanup cycle, with one immediate run on startup.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return
	}
	log.Info("Starting background cleanup routine...")

	go func() {
		log.Info("Running initial cleanup check on startup...")
		s.RunCleanupCycle()
	}()

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Info("Running scheduled cleanup cycle...")
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	select {
	case <-s.stopChan:
		// already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle performs one cycle: snapshot files belonging to
// expired events are removed first, then the event rows themselves.
func (s *Service) RunCleanupCycle() {
	if s == nil || s.retentionDays <= 0 {
		log.Debug("Skipping cleanup cycle: service not initialized or cleanup disabled.")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	log.Infof("Cleanup: deleting recognition events older than %s", cutoff.Format(time.RFC3339))

	s.deleteExpiredSnapshots(cutoff)

	deleted, err := s.repo.DeleteEventsBefore(cutoff)
	if err != nil {
		log.Errorf("Cleanup: error deleting old events: %v", err)
		return
	}
	log.Infof("Cleanup cycle finished. Deleted %d event(s).", deleted)
}

// deleteExpiredSnapshots walks the expired events in pages and removes
// their snapshot files. A file that fails to delete is logged and left
// for the next cycle; the DB row is removed regardless.
func (s *Service) deleteExpiredSnapshots(cutoff time.Time) {
	if s.snapshotDir == "" {
		return
	}

	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		events, _, err := s.repo.GetEvents(pageSize, offset)
		if err != nil {
			log.Errorf("Cleanup: error listing events for snapshot removal: %v", err)
			return
		}
		if len(events) == 0 {
			return
		}
		for _, event := range events {
			if !event.Timestamp.Before(cutoff) || event.SnapshotPath == "" {
				continue
			}
			s.removeSnapshot(event)
		}
		if len(events) < pageSize {
			return
		}
	}
}

func (s *Service) removeSnapshot(event models.RecognitionEvent) {
	path := filepath.Join(s.snapshotDir, event.SnapshotPath)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("Cleanup: error checking snapshot file '%s': %v", path, err)
		}
		return
	}
	if err := os.Remove(path); err != nil {
		log.Warnf("Cleanup: failed to delete snapshot file '%s' for event %d: %v", path, event.ID, err)
		return
	}
	log.Debugf("Cleanup: deleted snapshot file '%s' for event %d", path, event.ID)
}
