package graph

import (
	"github.com/Gobusters/ectologger"
)

// Store executes batch merges, counts and maintenance statements against the graph
type Store struct {
	querier Querier
	dialect Dialect
	logger  ectologger.Logger
}

// NewStore creates a new graph store
func NewStore(querier Querier, dialect Dialect, logger ectologger.Logger) *Store {
	if dialect == "" {
		dialect = DialectNeo4j
	}
	return &Store{
		querier: querier,
		dialect: dialect,
		logger:  logger,
	}
}
