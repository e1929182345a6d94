package loader

import (
	"github.com/Ramsey-B/fern/pkg/models"
)

// grouper folds consecutive rows sharing an identifier into one node. Rows arrive ordered by the raw
// identifier; a group is only emitted once the identifier changes or the stream ends, so a group
// split across fetches is still merged whole. Raw order can split identifiers that only match once
// normalised; such a group is resumed and emitted again with every row seen so far.
type grouper struct {
	def     *NodeDefinition
	current *group
	closed  map[string]*group
	// reopened counts identifiers seen again after their group was emitted
	reopened int
}

type group struct {
	id       string
	rows     int
	reported int // rows already carried by earlier emissions
	values   map[string]any
	members  map[string]map[string]struct{}
}

func newGrouper(def *NodeDefinition) *grouper {
	return &grouper{def: def, closed: map[string]*group{}}
}

// add folds row into the open group and returns the group it closed, if any
func (g *grouper) add(row models.NodeRow) []models.NodeRow {
	var closed []models.NodeRow
	if g.current != nil && g.current.id != row.ID {
		closed = append(closed, g.close())
	}
	if g.current == nil {
		if grp, ok := g.closed[row.ID]; ok {
			g.reopened++
			g.current = grp
		} else {
			g.current = g.open(row.ID)
		}
	}
	g.fold(row)
	return closed
}

// flush emits the open group at the end of the stream
func (g *grouper) flush() []models.NodeRow {
	if g.current == nil {
		return nil
	}
	return []models.NodeRow{g.close()}
}

// pending is the number of rows held in the open group
func (g *grouper) pending() int {
	if g.current == nil {
		return 0
	}
	return g.current.rows
}

func (g *grouper) open(id string) *group {
	grp := &group{
		id:      id,
		values:  map[string]any{},
		members: map[string]map[string]struct{}{},
	}
	for _, c := range g.def.Properties {
		switch c.Aggregate {
		case AggregateCollect:
			grp.values[c.PropertyName()] = []string{}
			grp.members[c.PropertyName()] = map[string]struct{}{}
		case AggregateAny:
			grp.values[c.PropertyName()] = false
		}
	}
	return grp
}

func (g *grouper) fold(row models.NodeRow) {
	grp := g.current
	grp.rows += row.Rows
	for _, c := range g.def.Properties {
		prop := c.PropertyName()
		v := row.Props[prop]
		switch c.Aggregate {
		case AggregateCollect:
			list := grp.values[prop].([]string)
			seen := grp.members[prop]
			for _, s := range flatten(v) {
				if _, ok := seen[s]; ok {
					continue
				}
				seen[s] = struct{}{}
				list = append(list, s)
			}
			grp.values[prop] = list
		case AggregateAny:
			if b, ok := v.(bool); ok && b {
				grp.values[prop] = true
			}
		default:
			if _, ok := grp.values[prop]; !ok && v != nil {
				grp.values[prop] = v
			}
		}
	}
}

func (g *grouper) close() models.NodeRow {
	grp := g.current
	g.current = nil
	g.closed[grp.id] = grp

	props := make(map[string]any, len(grp.values)+2)
	for k, v := range grp.values {
		props[k] = v
	}
	if spec := g.def.Group; spec != nil {
		if spec.CountProperty != "" {
			count := int64(grp.rows)
			if spec.CountOf != "" {
				if list, ok := props[spec.CountOf].([]string); ok {
					count = int64(len(list))
				}
			}
			props[spec.CountProperty] = count
		}
		if spec.TitleProperty != "" {
			props[spec.TitleProperty] = spec.TitlePrefix + grp.id
		}
	}
	rows := grp.rows - grp.reported
	grp.reported = grp.rows
	return models.NodeRow{ID: grp.id, Props: props, Rows: rows}
}

func flatten(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return []string{toString(v)}
}
