package dedupe

// Option applies a configuration option to the pending set.
type Option func(*pendingSet)

// WithSizeHint preallocates room for n pending keys.
func WithSizeHint(n int) Option {
	return func(p *pendingSet) {
		if n > 0 {
			p.hint = n
		}
	}
}
