package loader

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// rejection is a row that never reaches the graph store
type rejection struct {
	record models.SkipRecord
	reason models.ReasonCode
	field  string
}

// sanitiser validates source rows and converts their property columns
type sanitiser struct {
	def Definition
	ids []string
	// dropped counts property values that could not be converted, by column
	dropped map[string]int
}

func newSanitiser(def Definition) *sanitiser {
	return &sanitiser{def: def, ids: def.idNormalizers(), dropped: map[string]int{}}
}

// edge turns a link row into a relationship row, or rejects it
func (s *sanitiser) edge(row models.SourceRow) (models.EdgeRow, *rejection) {
	e := s.def.Edge
	srcID := identifier(row[e.Source.Column], s.ids)
	tgtID := identifier(row[e.Target.Column], s.ids)

	rec := models.SkipRecord{
		SourceID:   srcID,
		TargetID:   tgtID,
		SourceType: endpointType(e.Source, row),
		TargetType: endpointType(e.Target, row),
	}

	var missing []string
	if srcID == "" {
		missing = append(missing, e.Source.Column)
	}
	if tgtID == "" {
		missing = append(missing, e.Target.Column)
	}
	if len(missing) > 0 {
		return models.EdgeRow{}, &rejection{record: rec, reason: models.ReasonNullID, field: strings.Join(missing, ",")}
	}

	srcFamily, srcOK := endpointFamily(e.Source, row)
	tgtFamily, tgtOK := endpointFamily(e.Target, row)
	var untyped []string
	if !srcOK {
		untyped = append(untyped, e.Source.TypeColumn)
	}
	if !tgtOK {
		untyped = append(untyped, e.Target.TypeColumn)
	}
	if len(untyped) > 0 {
		return models.EdgeRow{}, &rejection{record: rec, reason: models.ReasonNullType, field: strings.Join(untyped, ",")}
	}

	out := models.EdgeRow{
		SourceID:     srcID,
		SourceFamily: srcFamily,
		TargetID:     tgtID,
		TargetFamily: tgtFamily,
		Props:        s.properties(row, e.Properties),
	}
	if e.MergeKey != "" {
		key := identifier(row[e.MergeKey], s.ids)
		if key == "" {
			return models.EdgeRow{}, &rejection{record: rec, reason: models.ReasonNullID, field: e.MergeKey}
		}
		out.MergeKey = key
	}
	return out, nil
}

// node turns an entity row into a node row, or rejects it
func (s *sanitiser) node(row models.SourceRow) (models.NodeRow, *rejection) {
	n := s.def.Node
	id := identifier(row[n.IDColumn], s.ids)
	if id == "" {
		rec := models.SkipRecord{SourceType: n.Variant.Family.Discriminator()}
		return models.NodeRow{}, &rejection{record: rec, reason: models.ReasonNullID, field: n.IDColumn}
	}
	return models.NodeRow{ID: id, Props: s.properties(row, n.Properties), Rows: 1}, nil
}

func (s *sanitiser) properties(row models.SourceRow, cols []Column) map[string]any {
	props := make(map[string]any, len(cols))
	for _, c := range cols {
		v, err := convert(row[c.Name], c.Kind)
		if err != nil {
			s.dropped[c.Name]++
			continue
		}
		props[c.PropertyName()] = v
	}
	return props
}

// droppedColumns lists the columns with unconvertible values, sorted
func (s *sanitiser) droppedColumns() []string {
	cols := make([]string, 0, len(s.dropped))
	for c := range s.dropped {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func endpointType(ep Endpoint, row models.SourceRow) string {
	if !ep.Polymorphic() {
		return ep.Family.Discriminator()
	}
	return normalizers.ApplyChain(toDiscriminator(row[ep.TypeColumn]), TypeNormalizers...)
}

func endpointFamily(ep Endpoint, row models.SourceRow) (models.Family, bool) {
	if !ep.Polymorphic() {
		return ep.Family, true
	}
	d := endpointType(ep, row)
	if d == "" {
		return "", false
	}
	return models.ParseFamily(d)
}

func toDiscriminator(v any) string {
	if v == nil {
		return ""
	}
	return toString(v)
}
