package models

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

const redacted = "**********"

// Secret holds sensitive card data such as the PAN or CVV. The value is only
// reachable through Reveal; every formatting and encoding path redacts it.
type Secret struct {
	value string
}

// NewSecret wraps v.
func NewSecret(v string) Secret {
	return Secret{value: v}
}

// Reveal returns the wrapped value. Call it only where the raw value is
// handed to an acquirer.
func (s Secret) Reveal() string {
	return s.value
}

// IsEmpty reports whether no value is wrapped.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

// MarshalJSON always emits the redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// UnmarshalJSON accepts a plain JSON string so requests bind straight into a Secret.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.value = v
	return nil
}

// MarshalZerologObject keeps secrets out of structured logs.
func (s Secret) MarshalZerologObject(e *zerolog.Event) {
	e.Str("value", redacted)
}
