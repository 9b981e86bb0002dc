package sources

import (
	"fmt"

	"github.com/stacklok/spigen/internal/config"
)

// defaultSourceHandlerFactory is the default implementation of SourceHandlerFactory
type defaultSourceHandlerFactory struct{}

var _ SourceHandlerFactory = (*defaultSourceHandlerFactory)(nil)

// NewSourceHandlerFactory creates a new source handler factory
func NewSourceHandlerFactory() SourceHandlerFactory {
	return &defaultSourceHandlerFactory{}
}

// CreateHandler creates a source handler for the given source type
func (*defaultSourceHandlerFactory) CreateHandler(sourceType string) (SourceHandler, error) {
	switch sourceType {
	case config.SourceTypeComposer:
		return NewComposerSourceHandler(), nil
	case config.SourceTypeManifest:
		return NewManifestSourceHandler(), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
