package homie5

import "strings"

type domainKind uint8

const (
	domainDefault domainKind = iota
	domainAll
	domainCustom
)

// HomieDomain is the first topic segment of every Homie topic.  The zero
// value is the default domain "homie".
type HomieDomain struct {
	kind   domainKind
	custom string
}

var (
	// DefaultDomain is the "homie" domain.
	DefaultDomain = HomieDomain{kind: domainDefault}
	// AllDomains is the "+" wildcard, for subscriptions across domains.
	AllDomains = HomieDomain{kind: domainAll}
)

// NewHomieDomain maps "homie" and "+" to their predefined domains and
// validates anything else as a custom single-segment domain.
func NewHomieDomain(s string) (HomieDomain, error) {
	switch s {
	case DefaultHomieDomain:
		return DefaultDomain, nil
	case "+":
		return AllDomains, nil
	}
	if err := validateCustomDomain(s); err != nil {
		return HomieDomain{}, err
	}
	return HomieDomain{kind: domainCustom, custom: s}, nil
}

// MustHomieDomain panics if s is not a valid domain.
func MustHomieDomain(s string) HomieDomain {
	d, err := NewHomieDomain(s)
	if err != nil {
		panic(err)
	}
	return d
}

func validateCustomDomain(s string) error {
	if s == "" {
		return &InvalidHomieDomainError{Domain: s, Details: "HomieDomain cannot be empty"}
	}
	if strings.ContainsAny(s, "/+#") {
		return &InvalidHomieDomainError{Domain: s, Details: "The homie-domain must be a single segment topic."}
	}
	return nil
}

// IsDefault reports whether d is the "homie" domain.
func (d HomieDomain) IsDefault() bool { return d.kind == domainDefault }

// IsAll reports whether d is the "+" wildcard domain.
func (d HomieDomain) IsAll() bool { return d.kind == domainAll }

func (d HomieDomain) String() string {
	switch d.kind {
	case domainAll:
		return "+"
	case domainCustom:
		return d.custom
	}
	return DefaultHomieDomain
}

// MarshalText encodes the domain as its topic segment, which also covers JSON
// and yaml.
func (d HomieDomain) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *HomieDomain) UnmarshalText(text []byte) error {
	nd, err := NewHomieDomain(string(text))
	if err != nil {
		return err
	}
	*d = nd
	return nil
}
