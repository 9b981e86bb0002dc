package status

import "time"

// GenerationPhase represents the phase of a generation run
type GenerationPhase string

const (
	// GenerationPhaseGenerating means a run is in progress
	GenerationPhaseGenerating GenerationPhase = "Generating"

	// GenerationPhaseComplete means the last run completed successfully
	GenerationPhaseComplete GenerationPhase = "Complete"

	// GenerationPhaseFailed means the last run failed
	GenerationPhaseFailed GenerationPhase = "Failed"
)

// GenerationStatus is the persisted outcome of generation runs
type GenerationStatus struct {
	// Phase represents the phase of the last run
	Phase GenerationPhase `json:"phase"`

	// Message provides additional information about the last run
	Message string `json:"message,omitempty"`

	// RunID identifies the last run in logs and traces
	RunID string `json:"runId,omitempty"`

	// GeneratorVersion is the version of the tool that produced the artifact
	GeneratorVersion string `json:"generatorVersion,omitempty"`

	// LastAttempt is the timestamp of the last run
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of failed runs since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastGenerationTime is the timestamp of the last successful run
	LastGenerationTime *time.Time `json:"lastGenerationTime,omitempty"`

	// LastInputHash is the hash of the package metadata of the last successful run
	// Used to detect changes in source data
	LastInputHash string `json:"lastInputHash,omitempty"`

	// LastSettingsHash is the hash of the filter and environment settings of the last successful run
	LastSettingsHash string `json:"lastSettingsHash,omitempty"`

	// ArtifactPath is the generated artifact
	ArtifactPath string `json:"artifactPath,omitempty"`

	// ArtifactHash is the SHA256 hash of the artifact content
	ArtifactHash string `json:"artifactHash,omitempty"`

	// Classmap lists generated files that must be registered with the class loader
	Classmap []string `json:"classmap,omitempty"`

	// ServiceCount is the number of services in the artifact
	ServiceCount int `json:"serviceCount"`

	// ProviderCount is the number of provider bindings in the artifact
	ProviderCount int `json:"providerCount"`

	// WarningCount is the number of warning diagnostics of the last successful run
	WarningCount int `json:"warningCount"`

	// InfoCount is the number of info diagnostics of the last successful run
	InfoCount int `json:"infoCount"`
}

// IsComplete reports whether the last run succeeded
func (s *GenerationStatus) IsComplete() bool {
	return s != nil && s.Phase == GenerationPhaseComplete
}
