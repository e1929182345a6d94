package models

import "strings"

// Family is a logical entity family a graph node belongs to
type Family string

const (
	FamilyActivity     Family = "activity"
	FamilyOrganisation Family = "organisation"
)

// Families lists every entity family in resolution order
var Families = []Family{FamilyActivity, FamilyOrganisation}

// Variant is the concrete node variant an identifier resolved to
type Variant string

const (
	VariantPublished Variant = "published"
	VariantPhantom   Variant = "phantom"
)

// ParseFamily maps a source type discriminator (ACTIVITY, ORGANISATION) to a family.
// The discriminator is expected to be normalised already.
func ParseFamily(discriminator string) (Family, bool) {
	switch strings.ToUpper(discriminator) {
	case "ACTIVITY":
		return FamilyActivity, true
	case "ORGANISATION", "ORGANIZATION":
		return FamilyOrganisation, true
	}
	return "", false
}

// Discriminator returns the source-table spelling of the family
func (f Family) Discriminator() string {
	return strings.ToUpper(string(f))
}

// NodeRef identifies a resolved graph node
type NodeRef struct {
	Family  Family  `json:"family"`
	Variant Variant `json:"variant"`
	ID      string  `json:"id"`
}
