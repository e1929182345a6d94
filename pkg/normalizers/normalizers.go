// Package normalizers provides the string normalizers applied to identifier and discriminator columns
package normalizers

import (
	"fmt"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

const (
	NameTrim               = "trim"
	NameUppercase          = "uppercase"
	NameLowercase          = "lowercase"
	NameStripInvisible     = "strip_invisible"
	NameCollapseWhitespace = "collapse_whitespace"
)

func init() {
	Register(NameTrim, Trim)
	Register(NameUppercase, Uppercase)
	Register(NameLowercase, Lowercase)
	Register(NameStripInvisible, StripInvisible)
	Register(NameCollapseWhitespace, CollapseWhitespace)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Validate returns an error naming the first unregistered normalizer
func Validate(names ...string) error {
	for _, name := range names {
		if _, ok := registry[name]; !ok {
			return fmt.Errorf("unknown normalizer %q", name)
		}
	}
	return nil
}

// ApplyChain applies multiple normalizers in sequence, skipping unknown names
func ApplyChain(value string, names ...string) string {
	result := value
	for _, name := range names {
		if fn, ok := registry[name]; ok {
			result = fn(result)
		}
	}
	return result
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// StripInvisible removes control and zero-width format characters (BOM, ZWSP) that
// survive copy-pasted identifiers
func StripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// CollapseWhitespace replaces runs of whitespace with a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
