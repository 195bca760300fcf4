package phase

// StatusFunc receives advisory messages from the engine, such as the
// one-shot warning when input buffers overrun the history window. It is
// called from the Process path and must not block.
type StatusFunc func(msg string)

// Option configures an [Engine].
type Option func(*Engine) error

// WithStatusFunc sets a callback for advisory status messages. A nil
// callback silences them.
func WithStatusFunc(fn StatusFunc) Option {
	return func(e *Engine) error {
		e.status = fn
		return nil
	}
}
