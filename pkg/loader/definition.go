// Package loader turns one source table into graph nodes or relationships
package loader

import (
	"fmt"

	"github.com/Ramsey-B/fern/internal/repositories/source"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/ledger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Kind tells node loaders from edge loaders
type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

// DefaultIDNormalizers clean identifier columns before the null check
var DefaultIDNormalizers = []string{normalizers.NameStripInvisible, normalizers.NameTrim}

// TypeNormalizers clean type discriminator columns before they are mapped to a family
var TypeNormalizers = []string{normalizers.NameStripInvisible, normalizers.NameTrim, normalizers.NameUppercase}

// Aggregation folds the values of one column across the rows of a group
type Aggregation string

const (
	// AggregateFirst keeps the first non-null value
	AggregateFirst Aggregation = "first"
	// AggregateCollect keeps every distinct value in arrival order
	AggregateCollect Aggregation = "collect"
	// AggregateAny is the logical OR of boolean values
	AggregateAny Aggregation = "any"
)

// Column maps one source column onto a graph property
type Column struct {
	Name string
	// Property defaults to Name
	Property  string
	Kind      models.ColumnKind
	Aggregate Aggregation
}

// PropertyName is the graph property the column is written to
func (c Column) PropertyName() string {
	if c.Property != "" {
		return c.Property
	}
	return c.Name
}

// Endpoint is one side of a relationship. The family is read per row from TypeColumn when it is set.
type Endpoint struct {
	Column     string
	Family     models.Family
	TypeColumn string
}

// Polymorphic reports whether the endpoint family is carried per row
func (e Endpoint) Polymorphic() bool {
	return e.TypeColumn != ""
}

func (e Endpoint) families() []models.Family {
	if e.Polymorphic() {
		return models.Families
	}
	return []models.Family{e.Family}
}

// EdgeDefinition maps link table rows onto one relationship type
type EdgeDefinition struct {
	Type   string
	Source Endpoint
	Target Endpoint
	// MergeKey names the column that distinguishes parallel relationships; it is written under its own name
	MergeKey   string
	Properties []Column
}

// Grouping folds every row sharing an identifier into one node
type Grouping struct {
	// CountProperty receives the group size: the length of CountOf when set, else the row count
	CountProperty string
	CountOf       string
	TitleProperty string
	TitlePrefix   string
}

// NodeDefinition maps entity table rows onto one node variant
type NodeDefinition struct {
	Variant    graph.NodeVariant
	IDColumn   string
	Properties []Column
	Group      *Grouping
}

// Definition is one entry of the loader catalogue. Exactly one of Edge and Node is set.
type Definition struct {
	Name      string
	Table     string
	BatchSize int
	// IDNormalizers defaults to DefaultIDNormalizers
	IDNormalizers []string
	Edge          *EdgeDefinition
	Node          *NodeDefinition
}

// Kind reports whether the loader writes nodes or relationships
func (d Definition) Kind() Kind {
	if d.Node != nil {
		return KindNode
	}
	return KindEdge
}

// Target is the relationship type or node label written by the loader
func (d Definition) Target() string {
	if d.Node != nil {
		return d.Node.Variant.Label
	}
	if d.Edge != nil {
		return d.Edge.Type
	}
	return ""
}

// Grouped reports whether rows are folded by identifier before merging
func (d Definition) Grouped() bool {
	return d.Node != nil && d.Node.Group != nil
}

// Variants are the node variants the loader writes or resolves against
func (d Definition) Variants() []graph.NodeVariant {
	if d.Node != nil {
		return []graph.NodeVariant{d.Node.Variant}
	}
	if d.Edge == nil {
		return nil
	}

	seen := map[string]bool{}
	out := []graph.NodeVariant{}
	for _, ep := range []Endpoint{d.Edge.Source, d.Edge.Target} {
		for _, family := range ep.families() {
			for _, v := range graph.VariantsOf(family) {
				if !seen[v.Label] {
					seen[v.Label] = true
					out = append(out, v)
				}
			}
		}
	}
	return out
}

func (d Definition) idNormalizers() []string {
	if len(d.IDNormalizers) > 0 {
		return d.IDNormalizers
	}
	return DefaultIDNormalizers
}

// IDColumns are the identifier columns probed for a loader: source then target, or the node key
func (d Definition) IDColumns() []string {
	if d.Node != nil {
		return []string{d.Node.IDColumn}
	}
	return []string{d.Edge.Source.Column, d.Edge.Target.Column}
}

// ProbeTarget is one identifier column and the families its values may resolve in
type ProbeTarget struct {
	Column   string
	Families []models.Family
}

// ProbeTargets lists the identifier columns of the loader with their candidate families
func (d Definition) ProbeTargets() []ProbeTarget {
	if d.Node != nil {
		return []ProbeTarget{{Column: d.Node.IDColumn, Families: []models.Family{d.Node.Variant.Family}}}
	}
	return []ProbeTarget{
		{Column: d.Edge.Source.Column, Families: d.Edge.Source.families()},
		{Column: d.Edge.Target.Column, Families: d.Edge.Target.families()},
	}
}

// Query is the source projection of the loader
func (d Definition) Query() source.Query {
	cols := []string{}
	seen := map[string]bool{}
	add := func(names ...string) {
		for _, n := range names {
			if n != "" && !seen[n] {
				seen[n] = true
				cols = append(cols, n)
			}
		}
	}

	q := source.Query{Table: d.Table}
	switch {
	case d.Node != nil:
		add(d.Node.IDColumn)
		for _, c := range d.Node.Properties {
			add(c.Name)
		}
		if d.Node.Group != nil {
			q.OrderBy = []string{d.Node.IDColumn}
		}
	case d.Edge != nil:
		add(d.Edge.Source.Column, d.Edge.Source.TypeColumn, d.Edge.Target.Column, d.Edge.Target.TypeColumn, d.Edge.MergeKey)
		for _, c := range d.Edge.Properties {
			add(c.Name)
		}
	}
	q.Columns = cols
	return q
}

// LedgerColumns heads the skip detail log
func (d Definition) LedgerColumns() ledger.Columns {
	if d.Node != nil {
		return ledger.Columns{Source: d.Node.IDColumn}
	}
	return ledger.Columns{Source: d.Edge.Source.Column, Target: d.Edge.Target.Column}
}

// Validate checks the definition against the graph allow-list and compiles its statement
func (d Definition) Validate() error {
	if !graph.ValidIdentifier(d.Name) {
		return fmt.Errorf("invalid loader name %q", d.Name)
	}
	if !graph.ValidIdentifier(d.Table) {
		return fmt.Errorf("loader %s: invalid table %q", d.Name, d.Table)
	}
	if d.BatchSize <= 0 {
		return fmt.Errorf("loader %s: batch size must be positive", d.Name)
	}
	if (d.Edge == nil) == (d.Node == nil) {
		return fmt.Errorf("loader %s: exactly one of edge or node must be defined", d.Name)
	}
	if err := normalizers.Validate(d.idNormalizers()...); err != nil {
		return fmt.Errorf("loader %s: %w", d.Name, err)
	}

	for _, col := range d.Query().Columns {
		if !graph.ValidIdentifier(col) {
			return fmt.Errorf("loader %s: invalid column %q", d.Name, col)
		}
	}

	var props []Column
	if d.Node != nil {
		props = d.Node.Properties
		if d.Node.IDColumn == "" {
			return fmt.Errorf("loader %s: missing id column", d.Name)
		}
		if g := d.Node.Group; g != nil {
			for _, p := range []string{g.CountProperty, g.TitleProperty} {
				if p != "" && !graph.ValidIdentifier(p) {
					return fmt.Errorf("loader %s: invalid property %q", d.Name, p)
				}
			}
		}
	} else {
		props = d.Edge.Properties
		for _, ep := range []Endpoint{d.Edge.Source, d.Edge.Target} {
			if ep.Column == "" {
				return fmt.Errorf("loader %s: endpoint without id column", d.Name)
			}
			if !ep.Polymorphic() {
				if _, ok := models.ParseFamily(ep.Family.Discriminator()); !ok {
					return fmt.Errorf("loader %s: unknown endpoint family %q", d.Name, ep.Family)
				}
			}
		}
	}
	for _, c := range props {
		if !graph.ValidIdentifier(c.PropertyName()) {
			return fmt.Errorf("loader %s: invalid property %q", d.Name, c.PropertyName())
		}
		if c.Aggregate != "" && !d.Grouped() {
			return fmt.Errorf("loader %s: column %s aggregates but the loader is not grouped", d.Name, c.Name)
		}
	}

	_, _, err := d.compile()
	return err
}

// compile builds the merge statement of the loader; one of the results is nil
func (d Definition) compile() (*graph.EdgeStatement, *graph.NodeStatement, error) {
	if d.Node != nil {
		stmt, err := graph.CompileNodeMerge(d.Node.Variant)
		if err != nil {
			return nil, nil, fmt.Errorf("loader %s: %w", d.Name, err)
		}
		return nil, stmt, nil
	}

	stmt, err := graph.CompileEdgeMerge(graph.EdgeSpec{
		Type:           d.Edge.Type,
		SourceFamilies: d.Edge.Source.families(),
		TargetFamilies: d.Edge.Target.families(),
		MergeKey:       d.Edge.MergeKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loader %s: %w", d.Name, err)
	}
	return stmt, nil, nil
}

// NormaliseID applies the loader's identifier normalizers; "" means the value is null
func (d Definition) NormaliseID(v any) string {
	return identifier(v, d.idNormalizers())
}
