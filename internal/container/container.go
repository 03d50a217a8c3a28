package container

import (
	"net/http"

	"screenvec/internal/config"
	"screenvec/internal/detector"
	"screenvec/internal/shapes"
	"screenvec/internal/state"
	"screenvec/internal/storage"
	"screenvec/internal/transport"
	"screenvec/internal/workflow"
)

// Container holds all application dependencies for one device.
type Container struct {
	config   *config.Config
	store    *state.Store
	shapes   *shapes.Library
	workflow *workflow.Workflow
	handler  http.Handler
}

// NewContainer builds the dependency graph from a loaded configuration.
func NewContainer(cfg *config.Config) (*Container, error) {
	paths := cfg.Paths()

	store := state.NewStore(paths.StatePath)
	library := shapes.NewLibrary(paths.ShapesPath)
	det := detector.New(detector.DefaultConfig())
	qual := detector.NewQualifier(detector.DefaultQualifierConfig())

	wf := workflow.New(
		paths,
		storage.NewLocalSource(),
		det,
		qual,
		store,
		library,
		workflow.Options{MoveRejected: cfg.MoveRejected, Workers: cfg.Workers},
	)

	return &Container{
		config:   cfg,
		store:    store,
		shapes:   library,
		workflow: wf,
		handler:  transport.NewHandler(store, wf, cfg),
	}, nil
}

// Handler returns the HTTP handler.
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Workflow returns the curation workflow.
func (c *Container) Workflow() *workflow.Workflow {
	return c.workflow
}
