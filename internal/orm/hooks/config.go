package hooks

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// Options are the global switches of the engine
type Options struct {
	// Enabled turns hook execution on. When false every operation returns its input as is.
	Enabled bool

	// LoadDatabaseValues makes hooks that support it receive the stored state of the
	// resources. Definitions can override it per hook.
	LoadDatabaseValues bool
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Enabled:            true,
		LoadDatabaseValues: false,
	}
}

// TargetedFields describes what the current request explicitly touches
type TargetedFields struct {
	// Attributes are the attribute names being written
	Attributes []string

	// Relationships are the relationships whose values are being set. They are visited
	// during traversal even when empty so hooks observe removals.
	Relationships []*resource.Relationship

	// Includes are the relationship chains requested for inclusion, used by BeforeRead
	Includes [][]*resource.Relationship
}

// Config holds executor configuration
type Config struct {
	// Graph provides the relationship declarations
	Graph *resource.Graph

	// Factory resolves hook containers
	Factory ContainerFactory

	// Repository loads stored state. Optional unless database values are loaded or
	// implicit relationship hooks are implemented.
	Repository Repository

	// Logger receives debug output for fired hooks (default: no-op)
	Logger *zap.Logger

	Options Options

	// TargetedFields of the request the executor serves
	TargetedFields TargetedFields
}

// DefaultConfig returns a configuration with default options and a no-op logger
func DefaultConfig(graph *resource.Graph, factory ContainerFactory) *Config {
	return &Config{
		Graph:   graph,
		Factory: factory,
		Logger:  zap.NewNop(),
		Options: DefaultOptions(),
	}
}
