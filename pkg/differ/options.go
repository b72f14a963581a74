package differ

// Option is a functional option for configuring a Differ.
type Option func(*Differ)

// WithExclusions sets fields that are skipped entirely during comparison.
func WithExclusions(fields ...string) Option {
	return func(d *Differ) {
		for _, field := range fields {
			d.exclusions[field] = struct{}{}
		}
	}
}

// WithTolerance registers a rule that replaces strict inequality for field.
func WithTolerance(field string, rule Rule) Option {
	return func(d *Differ) {
		if rule != nil {
			d.tolerances[field] = rule
		}
	}
}

// WithTouchField names the bookkeeping field used for no-op classification.
func WithTouchField(field string) Option {
	return func(d *Differ) {
		d.touch = field
	}
}
