package app

import (
	pkgsync "github.com/stacklok/spigen/internal/sync"
	"github.com/stacklok/spigen/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Manager runs the generation pipeline
	Manager pkgsync.Manager

	// Coordinator regenerates the artifact in watch mode
	Coordinator coordinator.Coordinator
}
