package utils

// Ptr returns a pointer to v. Test helper for nullable columns.
func Ptr[T any](v T) *T {
	return &v
}
