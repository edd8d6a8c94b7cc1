package media

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const scratchPattern = "**/*.{mp4,mov,3gp,webm,tmp}"

// ScratchPath returns a fresh file path under dir for a download.
func ScratchPath(dir, ext string) string {
	return filepath.Join(dir, uuid.NewString()+ext)
}

// Janitor periodically removes stale downloads from the scratch directory.
type Janitor struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
	logger *slog.Logger

	now func() time.Time
}

func NewJanitor(dir string, maxAge time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		dir:    dir,
		maxAge: maxAge,
		cron:   cron.New(),
		logger: logger.With("component", "media_janitor"),
		now:    time.Now,
	}
}

// Start schedules Sweep with a cron spec such as "@every 10m".
func (j *Janitor) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		if _, err := j.Sweep(); err != nil {
			j.logger.Warn("media sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule media cleanup %q: %w", schedule, err)
	}
	j.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep removes scratch files older than the max age and returns how many
// were removed.
func (j *Janitor) Sweep() (int, error) {
	fsys := os.DirFS(j.dir)
	matches, err := doublestar.Glob(fsys, scratchPattern)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list %s: %w", j.dir, err)
	}

	var (
		removed int
		errs    []error
	)
	cutoff := j.now().Add(-j.maxAge)
	for _, name := range matches {
		info, err := fs.Stat(fsys, name)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, filepath.FromSlash(name))
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("removed stale media", "count", removed)
	}
	return removed, errors.Join(errs...)
}
