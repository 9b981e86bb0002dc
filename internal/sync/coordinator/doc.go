// Package coordinator regenerates the provider registry while the project's
// package metadata changes.
//
// The coordinator sits on top of sync.Manager and handles:
//
//   - Watching the metadata files reported by Manager.WatchPaths
//   - Debouncing bursts of file events into a single check
//   - An initial check on startup
//   - Graceful shutdown
//
// # Decision Flow
//
// 1. A watched file is written, created, renamed or removed
// 2. The debounce timer is reset; further events keep resetting it
// 3. When the timer fires, Manager.ShouldGenerate decides if a run is needed
// 4. If needed, Manager.Generate runs the pipeline
//
// Failed runs are logged and the coordinator keeps watching. The next change
// triggers a new attempt, and ShouldGenerate reports the previous failure.
//
// # Usage Example
//
//	manager := sync.NewManager(cfg)
//	c := coordinator.New(manager, coordinator.WithDebounce(cfg.GetWatchDebounce()))
//
//	go func() {
//	    if err := c.Start(ctx); err != nil {
//	        slog.Error("Watch failed", "error", err)
//	    }
//	}()
//
//	// ... on shutdown
//	_ = c.Stop()
package coordinator
