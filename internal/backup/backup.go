// Package backup periodically copies every persisted key to object storage
// under a timestamped prefix.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"netventure.org/internal/obs"
	"netventure.org/internal/persist"
)

// DefaultInterval applies when Options.Interval is zero.
const DefaultInterval = time.Hour

// Snapshotter yields the encoded value of every persisted key.
type Snapshotter interface {
	Snapshot(ctx context.Context) (map[persist.Key][]byte, error)
}

// Putter writes a named object.
type Putter interface {
	Put(ctx context.Context, name string, data []byte) error
}

type Options struct {
	Interval time.Duration
	Prefix   string
	Timeout  time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Runner owns the backup job.
type Runner struct {
	src     Snapshotter
	dst     Putter
	prefix  string
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time

	sched    gocron.Scheduler
	interval time.Duration
}

func New(src Snapshotter, dst Putter, opts Options) (*Runner, error) {
	if src == nil || dst == nil {
		return nil, errors.New("backup: source and destination are required")
	}
	r := &Runner{
		src:      src,
		dst:      dst,
		prefix:   strings.Trim(opts.Prefix, "/"),
		timeout:  opts.Timeout,
		log:      opts.Logger,
		now:      opts.Now,
		interval: opts.Interval,
	}
	if r.prefix == "" {
		r.prefix = "backups"
	}
	if r.timeout <= 0 {
		r.timeout = time.Minute
	}
	if r.log == nil {
		r.log = obs.Logger()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	return r, nil
}

// RunOnce writes one snapshot and returns the folder it was written to.
func (r *Runner) RunOnce(ctx context.Context) (string, error) {
	snap, err := r.src.Snapshot(ctx)
	if err != nil {
		obs.ObserveBackup(false)
		return "", fmt.Errorf("backup snapshot: %w", err)
	}
	folder := path.Join(r.prefix, r.now().UTC().Format("20060102T150405Z"))

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		name := path.Join(folder, k+".json")
		if err := r.dst.Put(ctx, name, snap[persist.Key(k)]); err != nil {
			errs = append(errs, fmt.Errorf("backup put %s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		obs.ObserveBackup(false)
		return folder, err
	}
	obs.ObserveBackup(true)
	return folder, nil
}

// Start schedules RunOnce every interval. Overlapping runs are skipped.
func (r *Runner) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("backup scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			folder, err := r.RunOnce(ctx)
			if err != nil {
				r.log.Warn("backup failed", zap.String("folder", folder), zap.Error(err))
				return
			}
			r.log.Info("backup written", zap.String("folder", folder))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("state-backup"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("backup job: %w", err)
	}
	r.sched = sched
	sched.Start()
	r.log.Info("backup scheduled", zap.Duration("interval", r.interval), zap.String("prefix", r.prefix))
	return nil
}

// Shutdown stops the scheduler and waits for a running backup to finish.
func (r *Runner) Shutdown() error {
	if r.sched == nil {
		return nil
	}
	err := r.sched.Shutdown()
	r.sched = nil
	return err
}
