package validation

import "strings"

// FormatValidValues renders the allowed values of an enum-like string type
// for use in error messages.
func FormatValidValues[T ~string](values []T) string {
	var builder strings.Builder
	for i, value := range values {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(string(value))
	}
	return builder.String()
}
