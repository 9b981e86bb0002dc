package writer

import "fmt"

const (
	// ModeWrite publishes artifacts
	ModeWrite = "write"

	// ModeCheck only reports stale artifacts
	ModeCheck = "check"
)

// NewArtifactWriter creates an ArtifactWriter for the given mode.
// An empty mode selects ModeWrite.
func NewArtifactWriter(mode string) (ArtifactWriter, error) {
	switch mode {
	case ModeWrite, "":
		return NewFileArtifactWriter(), nil
	case ModeCheck:
		return NewCheckArtifactWriter(), nil
	default:
		return nil, fmt.Errorf("unsupported writer mode: %s", mode)
	}
}
