package revcache

// Factory creates engines bound to one invalidation context, so every engine
// it makes shares the same notion of global revision.
type Factory struct {
	tracker *Tracker
	log     Logger
	hooks   Hooks
}

// NewFactory binds a factory to tracker. The tracker is required; there is no
// ambient default.
func NewFactory(tracker *Tracker, opts Options) (*Factory, error) {
	if tracker == nil {
		return nil, invalidConfig("tracker is required")
	}
	return &Factory{
		tracker: tracker,
		log:     coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:   coalesce[Hooks](opts.Hooks, NopHooks{}),
	}, nil
}

// Tracker returns the invalidation context.
func (f *Factory) Tracker() *Tracker { return f.tracker }

// Revision is the dependency for values derived from the whole context.
func (f *Factory) Revision() Signal { return f.tracker.Revision() }

func (f *Factory) engine(name string, trackValue, requireDeps bool) *engine {
	return &engine{
		name:        name,
		track:       trackValue,
		requireDeps: requireDeps,
		log:         f.log,
		hooks:       f.hooks,
	}
}
