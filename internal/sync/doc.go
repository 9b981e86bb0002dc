// Package sync orchestrates a generation run: it reads package records from
// the configured source, aggregates their service declarations, filters them
// against the environment, renders the provider data artifact and publishes it.
//
// # Core Interfaces
//
//   - Manager: runs the pipeline (Generate), decides whether a run is needed
//     (ShouldGenerate) and removes generated files (Uninstall)
//   - DataChangeDetector: detects changes in package metadata using hash comparison
//
// # Pipeline Stages
//
// Each stage runs in its own trace span and failures are reported as *Error
// carrying the stage:
//
//   - StageFetch: source handler creation, validation and package fetch
//   - StageFilter: package name and keyword filtering
//   - StageResolve: opening the resolution context for availability checks
//   - StageRender: artifact rendering
//   - StageWrite: publishing the artifact
//   - StageStatus: persisting the generation status
//
// Malformed or unavailable declarations never fail a run. They are dropped
// and reported as diagnostics through a filtering.Reporter.
//
// # Generation Decisions
//
// ShouldGenerate compares the persisted status with the current inputs and
// returns a Reason:
//
//   - ReasonNeverGenerated: no status recorded yet
//   - ReasonPreviousFailed: the last run failed
//   - ReasonArtifactMissing: the recorded artifact no longer exists
//   - ReasonGeneratorUpgraded: a newer generator produced no artifact yet
//   - ReasonSettingsChanged: filter, environment or output settings changed
//   - ReasonSourceDataChanged: package metadata changed
//   - ReasonErrorCheckingChanges: change detection failed, generate anyway
//   - ReasonUpToDate: nothing to do
//
// The coordinator subpackage uses these decisions to regenerate on file changes.
package sync
