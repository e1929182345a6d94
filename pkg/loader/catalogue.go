package loader

import (
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	nodeBatchSize  = 1000
	smallBatchSize = 500
)

var (
	activity     = models.FamilyActivity
	organisation = models.FamilyOrganisation
)

// Catalogue returns every loader in orchestration order: published nodes, phantom nodes, then relationships
func Catalogue() []Definition {
	return []Definition{
		{
			Name:      "published_activities",
			Table:     "published_activities",
			BatchSize: nodeBatchSize,
			Node: &NodeDefinition{
				Variant:  graph.PublishedActivity,
				IDColumn: "iatiidentifier",
				Properties: []Column{
					{Name: "title_narrative", Property: "title", Kind: models.ColumnString},
				},
			},
		},
		{
			Name:      "published_organisations",
			Table:     "published_organisations",
			BatchSize: nodeBatchSize,
			Node: &NodeDefinition{
				Variant:  graph.PublishedOrganisation,
				IDColumn: "organisationidentifier",
				Properties: []Column{
					{Name: "name_narrative", Property: "name", Kind: models.ColumnString},
					{Name: "hierarchy", Kind: models.ColumnAuto},
					{Name: "reportingorg_ref", Kind: models.ColumnString},
					{Name: "dportal_link", Kind: models.ColumnString},
				},
			},
		},
		{
			Name:      "phantom_activities",
			Table:     "phantom_activities",
			BatchSize: nodeBatchSize,
			Node: &NodeDefinition{
				Variant:  graph.PhantomActivity,
				IDColumn: "phantom_activity_identifier",
				Properties: []Column{
					{Name: "source_column", Property: "source_columns", Kind: models.ColumnString, Aggregate: AggregateCollect},
					{Name: "source_activity_id", Property: "source_activity_ids", Kind: models.ColumnString, Aggregate: AggregateCollect},
				},
				Group: &Grouping{
					CountProperty: "reference_count",
					CountOf:       "source_activity_ids",
					TitleProperty: "title",
					TitlePrefix:   "Phantom Activity: ",
				},
			},
		},
		{
			Name:      "phantom_organisations",
			Table:     "phantom_organisations",
			BatchSize: nodeBatchSize,
			Node: &NodeDefinition{
				Variant:  graph.PhantomOrganisation,
				IDColumn: "reference",
				Properties: []Column{
					{Name: "distinct_narratives", Kind: models.ColumnStringArray, Aggregate: AggregateCollect},
					{Name: "phantom_in_participatingorg", Kind: models.ColumnBool, Aggregate: AggregateAny},
					{Name: "phantom_in_transaction_provider", Kind: models.ColumnBool, Aggregate: AggregateAny},
					{Name: "phantom_in_transaction_receiver", Kind: models.ColumnBool, Aggregate: AggregateAny},
					{Name: "phantom_in_orgbudget_recipient", Kind: models.ColumnBool, Aggregate: AggregateAny},
				},
				Group: &Grouping{CountProperty: "reference_count"},
			},
		},
		{
			Name:      "publication",
			Table:     "published_activities",
			BatchSize: nodeBatchSize,
			Edge: &EdgeDefinition{
				Type:   "PUBLISHES",
				Source: Endpoint{Column: "reportingorg_ref", Family: organisation},
				Target: Endpoint{Column: "iatiidentifier", Family: activity},
			},
		},
		{
			Name:      "hierarchy",
			Table:     "hierarchy_links",
			BatchSize: nodeBatchSize,
			Edge: &EdgeDefinition{
				Type:   "HIERARCHY",
				Source: Endpoint{Column: "source_node_id", Family: activity},
				Target: Endpoint{Column: "target_node_id", Family: activity},
				Properties: []Column{
					{Name: "relationship_type", Kind: models.ColumnAuto},
					{Name: "declared_by", Kind: models.ColumnString},
				},
			},
		},
		{
			Name:      "participation",
			Table:     "participation_links",
			BatchSize: nodeBatchSize,
			Edge: &EdgeDefinition{
				Type:   "PARTICIPATES_IN",
				Source: Endpoint{Column: "organisation_id", Family: organisation},
				Target: Endpoint{Column: "activity_id", Family: activity},
				// one relationship per organisation and activity; later roles overwrite earlier ones
				Properties: []Column{
					{Name: "role_code", Kind: models.ColumnString},
					{Name: "role_name", Kind: models.ColumnString},
				},
			},
		},
		{
			Name:      "activity_participation",
			Table:     "activity_participation_summary_links",
			BatchSize: smallBatchSize,
			Edge: &EdgeDefinition{
				Type:   "ACTIVITY_PARTICIPATION",
				Source: Endpoint{Column: "source_activity_id", Family: activity},
				Target: Endpoint{Column: "target_activity_id", Family: activity},
				Properties: []Column{
					{Name: "role_codes", Kind: models.ColumnStringArray},
					{Name: "role_names", Kind: models.ColumnStringArray},
				},
			},
		},
		{
			Name:      "funds",
			Table:     "funds_links",
			BatchSize: smallBatchSize,
			Edge: &EdgeDefinition{
				Type:   "FUNDS",
				Source: Endpoint{Column: "source_node_id", Family: activity},
				Target: Endpoint{Column: "target_node_id", Family: activity},
				Properties: []Column{
					{Name: "currency", Kind: models.ColumnString},
					{Name: "total_value_usd", Kind: models.ColumnDecimal},
				},
			},
		},
		{
			Name:      "financial",
			Table:     "financial_links",
			BatchSize: smallBatchSize,
			Edge: &EdgeDefinition{
				Type:     "FINANCIAL_TRANSACTION",
				Source:   Endpoint{Column: "source_node_id", TypeColumn: "source_node_type"},
				Target:   Endpoint{Column: "target_node_id", TypeColumn: "target_node_type"},
				MergeKey: "transactiontype_code",
				Properties: []Column{
					{Name: "transaction_type_name", Kind: models.ColumnString},
					{Name: "currency", Kind: models.ColumnString},
					{Name: "total_value_usd", Kind: models.ColumnDecimal},
				},
			},
		},
	}
}

// Lookup finds a loader by name
func Lookup(name string) (Definition, bool) {
	for _, d := range Catalogue() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names lists the catalogue in orchestration order
func Names() []string {
	defs := Catalogue()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
