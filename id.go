package homie5

// HomieID is a validated device, node or property identifier.  It may only
// contain lowercase letters a-z, digits 0-9 and hyphens, and is never empty.
type HomieID string

// NewHomieID validates id and returns it as a HomieID.
func NewHomieID(id string) (HomieID, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return HomieID(id), nil
}

// MustHomieID is like NewHomieID but panics on an invalid id.  Use it for literals.
func MustHomieID(id string) HomieID {
	h, err := NewHomieID(id)
	if err != nil {
		panic(err)
	}
	return h
}

func (id HomieID) String() string { return string(id) }

func validateID(id string) error {
	if len(id) < 1 {
		return &InvalidHomieIDError{ID: id, Details: "Homie ID cannot be empty"}
	}

	for i := 0; i < len(id); i++ {
		b := id[i]
		if (b < 'a' || b > 'z') &&
			(b < '0' || b > '9') &&
			b != '-' {
			return &InvalidHomieIDError{
				ID:      id,
				Details: "Homie ID can only contain lowercase letters a-z, numbers 0-9, and hyphens (-)",
			}
		}
	}

	return nil
}

// UnmarshalText validates ids read from JSON documents, including map keys.
func (id *HomieID) UnmarshalText(text []byte) error {
	h, err := NewHomieID(string(text))
	if err != nil {
		return err
	}
	*id = h
	return nil
}
