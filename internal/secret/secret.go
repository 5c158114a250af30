// Package secret provides a value type for credentials that must never leak
// into logs, JSON output or error messages.
package secret

import "log/slog"

const redacted = "[REDACTED]"

// String holds a sensitive value. The raw value is only reachable via Expose.
type String struct {
	value string
}

// New wraps a raw value.
func New(value string) String {
	return String{value: value}
}

// Expose returns the raw value. Call it only at the point of use.
func (s String) Expose() string {
	return s.value
}

// IsZero reports whether the secret is empty.
func (s String) IsZero() bool {
	return s.value == ""
}

// Len returns the length of the raw value in bytes.
func (s String) Len() int {
	return len(s.value)
}

// String implements fmt.Stringer.
func (s String) String() string {
	return redacted
}

// GoString implements fmt.GoStringer so %#v is redacted too.
func (s String) GoString() string {
	return redacted
}

// LogValue implements slog.LogValuer.
func (s String) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalJSON always emits the redacted placeholder.
func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// UnmarshalText lets env and flag parsers populate the secret.
func (s *String) UnmarshalText(text []byte) error {
	s.value = string(text)
	return nil
}
