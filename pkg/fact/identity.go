package fact

import (
	"strings"
	"unicode"
)

// Identity determines whether two facts are about the same thing. It is a
// closed set: only RelationalKey, RiskKey and ContextKey implement it.
type Identity interface {
	// Kind is the fact family this identity belongs to.
	Kind() Kind

	// Key is the normalized identity key persisted with the fact.
	Key() string

	// Scope is the normalized value the store filters on to build the
	// working set for this identity.
	Scope() string

	// Empty reports whether a required identity field is missing.
	Empty() bool

	identity()
}

// RelationalKey identifies a relational (business) fact.
type RelationalKey struct {
	Subject   string
	Predicate string
}

func (RelationalKey) identity() {}

// Kind implements Identity.
func (RelationalKey) Kind() Kind { return KindRelational }

// Key implements Identity.
func (k RelationalKey) Key() string {
	return NormalizeText(k.Subject) + "::" + NormalizeText(k.Predicate)
}

// Scope is the normalized subject. Facts sharing a subject but not a
// predicate come back in the working set and classify as unrelated facets.
func (k RelationalKey) Scope() string {
	return NormalizeText(k.Subject)
}

// Empty implements Identity.
func (k RelationalKey) Empty() bool {
	return NormalizeText(k.Subject) == "" || NormalizeText(k.Predicate) == ""
}

// SamePredicate reports whether both keys name the same predicate.
func (k RelationalKey) SamePredicate(other RelationalKey) bool {
	return NormalizeText(k.Predicate) == NormalizeText(other.Predicate)
}

// RiskKey identifies a risk record by title.
type RiskKey struct {
	Title string
}

func (RiskKey) identity() {}

// Kind implements Identity.
func (RiskKey) Kind() Kind { return KindRisk }

// Key implements Identity.
func (k RiskKey) Key() string { return NormalizeTitle(k.Title) }

// Scope is empty: risk titles match fuzzily, so the working set is every
// active risk of the user.
func (RiskKey) Scope() string { return "" }

// Empty implements Identity.
func (k RiskKey) Empty() bool { return NormalizeTitle(k.Title) == "" }

// ContextKey identifies a singleton company context entry.
type ContextKey struct {
	Name string
}

func (ContextKey) identity() {}

// Kind implements Identity.
func (ContextKey) Kind() Kind { return KindContext }

// Key implements Identity.
func (k ContextKey) Key() string { return strings.ToLower(strings.TrimSpace(k.Name)) }

// Scope implements Identity.
func (k ContextKey) Scope() string { return k.Key() }

// Empty implements Identity.
func (k ContextKey) Empty() bool { return k.Key() == "" }

// NormalizeText lower-cases s and collapses runs of whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeTitle folds punctuation to spaces before applying NormalizeText,
// so "Key-person risk" and "key person risk." share a key.
func NormalizeTitle(s string) string {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	return NormalizeText(folded)
}
