package database

import (
	"fmt"
	"regexp"

	"github.com/huandu/go-sqlbuilder"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FlavorFor returns the sqlbuilder flavor matching a driver name
func FlavorFor(driverName string) sqlbuilder.Flavor {
	if driverName == DriverSQLite {
		return sqlbuilder.SQLite
	}
	return sqlbuilder.PostgreSQL
}

// ValidIdentifier reports whether s can be interpolated as a table or column name
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// QualifiedTable returns schema.table, or the bare table when schema is empty
func QualifiedTable(schema, table string) (string, error) {
	if !ValidIdentifier(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	if schema == "" {
		return table, nil
	}
	if !ValidIdentifier(schema) {
		return "", fmt.Errorf("invalid schema name %q", schema)
	}
	return schema + "." + table, nil
}

// SelectBuilder wraps sqlbuilder.SelectBuilder for a fixed flavor
type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

func NewSelectBuilder(flavor sqlbuilder.Flavor) *SelectBuilder {
	return &SelectBuilder{flavor.NewSelectBuilder()}
}

// CountQuery builds SELECT COUNT(*) FROM table
func CountQuery(flavor sqlbuilder.Flavor, table string) (string, []any) {
	sb := NewSelectBuilder(flavor)
	sb.Select("COUNT(*)").From(table)
	return sb.Build()
}

// CountDistinctQuery builds SELECT COUNT(DISTINCT column) FROM table
func CountDistinctQuery(flavor sqlbuilder.Flavor, table, column string) (string, []any) {
	sb := NewSelectBuilder(flavor)
	sb.Select(fmt.Sprintf("COUNT(DISTINCT %s)", column)).From(table)
	return sb.Build()
}
