package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Sweeper runs the FIFO retention daemon (spec §4.5): every interval, for
// each camera subdirectory independently, delete the oldest *.jpg files
// until count <= maxFiles. Per-directory cap is independent; a noisy
// camera cannot evict a quiet one's stills.
type Sweeper struct {
	store    *Store
	interval time.Duration
	maxFiles int
}

// NewSweeper constructs a Sweeper. interval and maxFiles default to spec's
// defaults (3600s, 1000 files) when <= 0.
func NewSweeper(store *Store, interval time.Duration, maxFiles int) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxFiles <= 0 {
		maxFiles = 1000
	}
	return &Sweeper{store: store, interval: interval, maxFiles: maxFiles}
}

// Run blocks, sweeping on each tick until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.SweepOnce()
		}
	}
}

// SweepOnce performs a single pass over every camera subdirectory.
func (sw *Sweeper) SweepOnce() {
	entries, err := os.ReadDir(sw.store.root)
	if err != nil {
		sw.store.log.WithError(err).Warn("snapshot: sweeper: read root failed")
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sw.sweepCamera(e.Name())
	}
}

func (sw *Sweeper) sweepCamera(cameraID string) {
	dir := filepath.Join(sw.store.root, cameraID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		sw.store.log.WithError(err).Warn("snapshot: sweeper: read camera dir failed")
		return
	}

	type file struct {
		name  string
		mtime time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jpg" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{name: e.Name(), mtime: info.ModTime()})
	}
	if len(files) <= sw.maxFiles {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime.Before(files[j].mtime) })

	toDelete := len(files) - sw.maxFiles
	for i := 0; i < toDelete; i++ {
		path := filepath.Join(dir, files[i].name)
		if err := os.Remove(path); err != nil {
			// Logged and skipped; the rest of the sweep proceeds (spec §4.5).
			sw.store.log.WithError(err).Warn("snapshot: sweeper: delete failed")
			continue
		}
	}
}
