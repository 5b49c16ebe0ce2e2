package uploadsvc

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/educryption/core"
)

// FileLister lists the stored paths still referenced, e.g. content.Service.
type FileLister interface {
	ReferencedFiles(ctx context.Context) ([]string, error)
}

// Sweeper periodically removes uploaded files nothing references anymore.
type Sweeper struct {
	store  *DiskStore
	lister FileLister
	folder string
	logger core.Logger
	cron   *cron.Cron

	// MinAge protects files saved before their owner was persisted.
	MinAge time.Duration
}

func NewSweeper(store *DiskStore, lister FileLister, folder string, logger core.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		lister: lister,
		folder: folder,
		logger: logger,
		MinAge: time.Hour,
	}
}

// Start runs Sweep on schedule (standard 5 fields cron spec) until Stop.
func (sw *Sweeper) Start(schedule string) error {
	sw.cron = cron.New()
	_, err := sw.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		removed, err := sw.Sweep(ctx)
		if err != nil {
			sw.logger.Error("sweeping uploads", err)
			return
		}
		if removed > 0 {
			sw.logger.Info("uploads sweep", map[string]interface{}{"removed": removed})
		}
	})
	if err != nil {
		return errors.Wrap(err, "scheduling uploads sweep")
	}
	sw.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep.
func (sw *Sweeper) Stop() {
	if sw.cron != nil {
		<-sw.cron.Stop().Done()
	}
}

// Sweep removes the orphaned files of the folder and returns how many were removed.
func (sw *Sweeper) Sweep(ctx context.Context) (int, error) {
	paths, err := sw.lister.ReferencedFiles(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing referenced files")
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	dir := filepath.Join(sw.store.Root(), filepath.FromSlash(sw.folder))
	threshold := time.Now().Add(-sw.MinAge)
	var removed int

	err = filepath.WalkDir(dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && fp == dir {
				return filepath.SkipDir
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(threshold) {
			return nil
		}
		p, err := sw.store.storedPath(fp)
		if err != nil {
			return err
		}
		if _, ok := referenced[p]; ok {
			return nil
		}
		if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
			return err
		}
		removed++
		return nil
	})
	return removed, errors.Wrap(err, "walking uploads")
}
