package graph

import (
	"fmt"
	"regexp"

	"github.com/Ramsey-B/fern/pkg/models"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NodeVariant is one concrete (label, identifying property) pair of an entity family
type NodeVariant struct {
	Family     models.Family
	Variant    models.Variant
	Label      string
	IDProperty string
}

var (
	PublishedActivity = NodeVariant{
		Family:     models.FamilyActivity,
		Variant:    models.VariantPublished,
		Label:      "PublishedActivity",
		IDProperty: "iatiidentifier",
	}
	PhantomActivity = NodeVariant{
		Family:     models.FamilyActivity,
		Variant:    models.VariantPhantom,
		Label:      "PhantomActivity",
		IDProperty: "phantom_activity_identifier",
	}
	PublishedOrganisation = NodeVariant{
		Family:     models.FamilyOrganisation,
		Variant:    models.VariantPublished,
		Label:      "PublishedOrganisation",
		IDProperty: "organisationidentifier",
	}
	PhantomOrganisation = NodeVariant{
		Family:     models.FamilyOrganisation,
		Variant:    models.VariantPhantom,
		Label:      "PhantomOrganisation",
		IDProperty: "reference",
	}
)

// variants is the resolution order per family: published always precedes phantom
var variants = map[models.Family][]NodeVariant{
	models.FamilyActivity:     {PublishedActivity, PhantomActivity},
	models.FamilyOrganisation: {PublishedOrganisation, PhantomOrganisation},
}

// RelationshipTypes is the allow-list of relationship types that may be merged or counted
var RelationshipTypes = map[string]bool{
	"PUBLISHES":              true,
	"HIERARCHY":              true,
	"PARTICIPATES_IN":        true,
	"ACTIVITY_PARTICIPATION": true,
	"FUNDS":                  true,
	"FINANCIAL_TRANSACTION":  true,
}

// VariantsOf returns the node variants of a family in resolution order
func VariantsOf(family models.Family) []NodeVariant {
	return variants[family]
}

// AllVariants returns every managed node variant, activities first
func AllVariants() []NodeVariant {
	out := make([]NodeVariant, 0, 4)
	for _, family := range models.Families {
		out = append(out, variants[family]...)
	}
	return out
}

// VariantByLabel looks up a managed node variant
func VariantByLabel(label string) (NodeVariant, bool) {
	for _, v := range AllVariants() {
		if v.Label == label {
			return v, true
		}
	}
	return NodeVariant{}, false
}

// ValidIdentifier reports whether s may be interpolated into Cypher as a label, type or property name
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

func checkLabel(label string) error {
	if _, ok := VariantByLabel(label); !ok {
		return fmt.Errorf("label %q is not a managed node label", label)
	}
	return nil
}

func checkRelationshipType(relType string) error {
	if !RelationshipTypes[relType] || !ValidIdentifier(relType) {
		return fmt.Errorf("relationship type %q is not allowed", relType)
	}
	return nil
}

func checkFamilies(families []models.Family) error {
	if len(families) == 0 {
		return fmt.Errorf("at least one endpoint family is required")
	}
	seen := map[models.Family]bool{}
	for _, f := range families {
		if _, ok := variants[f]; !ok {
			return fmt.Errorf("unknown entity family %q", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate entity family %q", f)
		}
		seen[f] = true
	}
	return nil
}
