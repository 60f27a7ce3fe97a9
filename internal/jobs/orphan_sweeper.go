package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/repository"
	"github.com/BerylCAtieno/document-chat-api/internal/storage"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"
	"github.com/robfig/cron/v3"
)

// OrphanSweeper deletes stored files that no document record points at.
// Files younger than the grace period are left alone so an upload that is
// still between the file write and the insert is never touched.
type OrphanSweeper struct {
	repo    repository.Repository
	storage storage.Storage
	grace   time.Duration
	logger  *utils.Logger
	now     func() time.Time
}

func NewOrphanSweeper(repo repository.Repository, store storage.Storage, grace time.Duration, logger *utils.Logger) *OrphanSweeper {
	return &OrphanSweeper{
		repo:    repo,
		storage: store,
		grace:   grace,
		logger:  logger.With("job", "orphan_sweeper"),
		now:     time.Now,
	}
}

// Sweep runs one pass and returns the number of files removed.
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.storage.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored files: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	removed := 0
	for _, obj := range objects {
		if obj.ModTime.After(cutoff) {
			continue
		}

		referenced, err := s.repo.ExistsByStoredPath(ctx, obj.Key)
		if err != nil {
			return removed, fmt.Errorf("failed to check %s: %w", obj.Key, err)
		}
		if referenced {
			continue
		}

		if err := s.storage.Delete(ctx, obj.Key); err != nil {
			s.logger.Warn("Failed to remove orphaned file", "stored_path", obj.Key, "error", err)
			continue
		}
		s.logger.Info("Removed orphaned file", "stored_path", obj.Key, "size", obj.Size)
		removed++
	}

	return removed, nil
}

// Start schedules Sweep on a cron spec such as "@hourly" or "*/15 * * * *".
// The returned scheduler is already running; Stop it on shutdown.
func (s *OrphanSweeper) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		removed, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("Orphan sweep failed", "error", err, "removed", removed)
			return
		}
		s.logger.Debug("Orphan sweep finished", "removed", removed)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}
