package common

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used for passwords read from the terminal once they have been sent.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Truthy reports whether a replacement value should overwrite the stored one:
// nil pointers and zero values leave the stored value untouched.
func Truthy[T comparable](v *T) bool {
	if v == nil {
		return false
	}
	var zero T
	return *v != zero
}
