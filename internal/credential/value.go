package credential

import "fmt"

// Value wraps a decrypted credential secret so it can be passed through
// ordinary Go code without an accidental zap.Any/%v/%+v leaking it into a
// log line. String and Format both redact; callers that genuinely need
// the secret (an outbound HTTP call a processor makes) must call Reveal
// explicitly.
type Value struct {
	plaintext string
}

// NewValue wraps a decrypted secret.
func NewValue(plaintext string) Value {
	return Value{plaintext: plaintext}
}

// Reveal returns the underlying secret. Only call this at the point of
// use (building a request to the credential's owning provider); never
// store the result somewhere that might get logged.
func (v Value) Reveal() string {
	return v.plaintext
}

// String implements fmt.Stringer, redacting the secret.
func (v Value) String() string {
	return "credential.Value(redacted)"
}

// Format implements fmt.Formatter so that %v, %+v, and %#v all redact
// too — only %s/%q via String would otherwise be safe, but %v bypasses
// Stringer for structs containing unexported fields under some verbs.
func (v Value) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte("credential.Value(redacted)"))
}
