package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fsnotify/fsnotify"

	"github.com/stacklok/spigen/internal/config"
	pkgsync "github.com/stacklok/spigen/internal/sync"
)

const (
	// DefaultMaxAttempts bounds the generation attempts per change
	DefaultMaxAttempts = 3

	// DefaultRetryInterval is the first delay between attempts
	DefaultRetryInterval = 250 * time.Millisecond
)

// Coordinator regenerates the artifact when watched metadata changes
type Coordinator interface {
	// Start watches the metadata files and regenerates on change.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager       pkgsync.Manager
	debounce      time.Duration
	maxAttempts   uint
	retryInterval time.Duration

	// Lifecycle management
	mu         gosync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithDebounce sets the quiet period between the last file event and the check
func WithDebounce(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithRetry sets how often a failed fetch or resolve is retried.
// Metadata files are briefly incomplete while the package manager installs.
func WithRetry(maxAttempts uint, initialInterval time.Duration) Option {
	return func(c *defaultCoordinator) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if initialInterval > 0 {
			c.retryInterval = initialInterval
		}
	}
}

// New creates a new coordinator for the given manager
func New(manager pkgsync.Manager, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:       manager,
		debounce:      config.DefaultWatchDebounce,
		maxAttempts:   DefaultMaxAttempts,
		retryInterval: DefaultRetryInterval,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start watches the metadata files and regenerates on change
func (c *defaultCoordinator) Start(ctx context.Context) error {
	// Create cancellable context for this coordinator
	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Watch coordinator shutting down")
	}()

	paths, err := c.manager.WatchPaths()
	if err != nil {
		return fmt.Errorf("failed to determine watched files: %w", err)
	}
	targets := newWatchTargets(paths)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Warn("Failed to close file watcher", "error", err)
		}
	}()

	watched := 0
	for _, dir := range targets.dirs() {
		if err := watcher.Add(dir); err != nil {
			slog.Warn("Directory cannot be watched, changes inside it are ignored",
				"dir", dir,
				"error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("none of the watched directories exist: %v", targets.dirs())
	}

	slog.Info("Starting watch coordinator",
		"files", paths,
		"debounce", c.debounce)

	// Perform initial check
	c.check(coordCtx, "startup")

	return c.loop(coordCtx, watcher, targets)
}

// loop processes file system events with debouncing
func (c *defaultCoordinator) loop(ctx context.Context, watcher *fsnotify.Watcher, targets watchTargets) error {
	var (
		timer   *time.Timer
		pending bool
		trigger string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets.isRelevant(event) {
				continue
			}
			slog.Debug("Watched file changed", "file", event.Name, "op", event.Op.String())

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(c.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(c.debounce)
			}
			pending = true
			trigger = event.Name

		case <-timerC(timer):
			if pending {
				pending = false
				c.check(ctx, trigger)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", "error", err)

		case <-ctx.Done():
			slog.Info("Watch coordinator stopping")
			return nil
		}
	}
}

func timerC(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping watch coordinator")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}

// check asks the manager whether a run is needed and performs it
func (c *defaultCoordinator) check(ctx context.Context, trigger string) {
	reason := c.manager.ShouldGenerate(ctx)
	if !reason.ShouldGenerate() {
		slog.Debug("Artifact is up to date", "trigger", trigger, "reason", reason.String())
		return
	}

	slog.Info("Regenerating provider registry", "trigger", trigger, "reason", reason.String())
	if err := c.generate(ctx); err != nil {
		slog.Error("Watch-triggered generation failed", "trigger", trigger, "error", err)
	}
}

// generate runs Generate, retrying failures of the fetch and resolve stages
func (c *defaultCoordinator) generate(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	_, err := backoff.Retry(ctx, func() (*pkgsync.Result, error) {
		result, err := c.manager.Generate(ctx)
		if err != nil && !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return result, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Generation failed, retrying", "error", err, "retry_in", next)
		}),
	)
	return err
}

// isTransient reports whether a failed run may succeed once the package manager finishes
func isTransient(err error) bool {
	var genErr *pkgsync.Error
	if !errors.As(err, &genErr) {
		return false
	}
	return genErr.Stage == pkgsync.StageFetch || genErr.Stage == pkgsync.StageResolve
}
