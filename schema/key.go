package schema

import (
	"golang.org/x/text/cases"
)

// Key identifies a schema object by its (schemaOwner, name) pair.
// Keys compare case-insensitively; an empty owner matches any owner.
type Key struct {
	Owner string `yaml:"owner,omitempty"`
	Name  string `yaml:"name"`
}

func KeyOf(owner, name string) Key {
	return Key{Owner: owner, Name: name}
}

// Fold returns the comparison form of the key.
func (k Key) Fold() string {
	return fold(k.Owner) + "." + fold(k.Name)
}

// Matches reports whether both keys name the same object. Owners are only
// compared when both sides carry one.
func (k Key) Matches(other Key) bool {
	if !EqualFold(k.Name, other.Name) {
		return false
	}
	if k.Owner == "" || other.Owner == "" {
		return true
	}
	return EqualFold(k.Owner, other.Owner)
}

func (k Key) String() string {
	if k.Owner == "" {
		return k.Name
	}
	return k.Owner + "." + k.Name
}

// EqualFold compares two identifiers using Unicode case folding.
func EqualFold(a, b string) bool {
	return fold(a) == fold(b)
}

// Fold returns the case-folded form of an identifier.
func Fold(s string) string {
	return fold(s)
}

// A cases.Caser keeps state between calls, so one is created per use.
func fold(s string) string {
	return cases.Fold().String(s)
}
