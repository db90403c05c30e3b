package utils

// Value dereferences p, yielding the zero value for a nil pointer. Useful
// for optional API response fields.
func Value[T any](p *T) T {
	if p == nil {
		return *new(T)
	}
	return *p
}
