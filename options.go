package revcache

// Options tune a Factory. All fields are optional.
type Options struct {
	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

// Option configures one engine created by NewValue or NewParameterized.
type Option func(*engineConfig)

type engineConfig struct {
	name        string
	maxEntries  int
	requireDeps bool
}

// WithName labels the engine in logs, hooks and errors.
func WithName(name string) Option {
	return func(c *engineConfig) { c.name = name }
}

// WithMaxEntries bounds a Parameterized table; the oldest-inserted keys are
// evicted first. 0 means unbounded. Ignored by Value.
func WithMaxEntries(n int) Option {
	return func(c *engineConfig) { c.maxEntries = n }
}

// RequireDependencies rejects provider results that declare no dependencies.
// Only meaningful with trackValue=true.
func RequireDependencies() Option {
	return func(c *engineConfig) { c.requireDeps = true }
}

func buildConfig(defName string, trackValue bool, opts []Option) (engineConfig, error) {
	var cfg engineConfig
	for _, o := range opts {
		o(&cfg)
	}
	cfg.name = coalesce(cfg.name, defName)
	if cfg.maxEntries < 0 {
		return cfg, invalidConfig("%s: negative max entries %d", cfg.name, cfg.maxEntries)
	}
	if cfg.requireDeps && !trackValue {
		return cfg, invalidConfig("%s: dependencies required but tracking is disabled", cfg.name)
	}
	return cfg, nil
}
