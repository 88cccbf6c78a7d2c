package callback

// MaxArgs is the default argument capacity of a single call. A call with
// more arguments fails instead of being truncated.
const MaxArgs = 16

// Config configures a Registry. A nil Config uses defaults.
type Config struct {
	// MaxArgs overrides the argument capacity. Zero means MaxArgs.
	MaxArgs int
}

func (c *Config) maxArgs() int {
	if c == nil || c.MaxArgs <= 0 {
		return MaxArgs
	}
	return c.MaxArgs
}
