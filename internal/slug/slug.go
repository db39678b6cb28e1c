// Package slug builds URL-safe identifiers from display names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)
	validSlug = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Normalize lowercases s, strips diacritics and collapses every run of
// non-alphanumeric characters into a single hyphen.
//
//	Normalize("Café & Té / 100%!") == "cafe-te-100"
func Normalize(s string) string {
	lower := strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, lower)
	if err != nil {
		stripped = lower
	}
	return strings.Trim(nonAlnum.ReplaceAllString(stripped, "-"), "-")
}

// Valid reports whether s is already in normalized form.
func Valid(s string) bool {
	return validSlug.MatchString(s)
}

// AutoSlug keeps a slug in sync with a name until the slug is edited by hand.
// The zero value is ready to use. It belongs to a single form session.
type AutoSlug struct {
	value  string
	manual bool
}

// SetName updates the slug from name unless a manual edit was recorded.
func (a *AutoSlug) SetName(name string) {
	if a.manual {
		return
	}
	a.value = Normalize(name)
}

// SetSlug records a manual edit. Auto-sync stays off from here on.
func (a *AutoSlug) SetSlug(s string) {
	a.manual = true
	a.value = s
}

// Manual reports whether the slug was edited by hand.
func (a *AutoSlug) Manual() bool { return a.manual }

// Value returns the current slug.
func (a *AutoSlug) Value() string { return a.value }
