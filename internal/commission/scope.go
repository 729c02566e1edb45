package commission

import "encoding/json"

// Scope is an optional scoping attribute on a Rule. The zero value matches
// any deal value.
type Scope struct {
	value string
	set   bool
}

// AnyValue returns a wildcard scope.
func AnyValue() Scope {
	return Scope{}
}

// Only returns a scope restricted to exactly v.
func Only(v string) Scope {
	return Scope{value: v, set: true}
}

// ScopeOf treats an empty value as a wildcard. Stores and snapshot files
// cannot distinguish a blank column from an absent one.
func ScopeOf(v string) Scope {
	if v == "" {
		return AnyValue()
	}
	return Only(v)
}

// ScopeFromPtr maps a nullable column to a Scope.
func ScopeFromPtr(v *string) Scope {
	if v == nil {
		return AnyValue()
	}
	return ScopeOf(*v)
}

// IsAny reports whether the scope is a wildcard.
func (s Scope) IsAny() bool {
	return !s.set
}

// Value returns the restricted value and true, or "" and false for a wildcard.
func (s Scope) Value() (string, bool) {
	return s.value, s.set
}

// Ptr returns nil for a wildcard, or a pointer to a copy of the value.
func (s Scope) Ptr() *string {
	if !s.set {
		return nil
	}
	v := s.value
	return &v
}

// Matches compares case-sensitively against a deal value.
func (s Scope) Matches(dealValue string) bool {
	return !s.set || s.value == dealValue
}

func (s Scope) String() string {
	if !s.set {
		return "*"
	}
	return s.value
}

// MarshalJSON encodes a wildcard as null and a restricted scope as its value.
func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ptr())
}

// UnmarshalJSON decodes null or "" to a wildcard.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var v *string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ScopeFromPtr(v)
	return nil
}
