package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func newTestResolver(q *fakeQuerier) *Resolver {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewResolver(q, logger)
}

func TestResolver_ResolveMany(t *testing.T) {
	q := &fakeQuerier{respond: func(c call) ([]map[string]any, error) {
		return []map[string]any{
			{"id": "GB-1", "published": true, "phantom": false},
			{"id": "GB-2", "published": false, "phantom": true},
			{"id": "GB-3", "published": true, "phantom": true},
			{"id": "GB-4", "published": false, "phantom": false},
		}, nil
	}}
	resolver := newTestResolver(q)

	res, err := resolver.ResolveMany(context.Background(), models.FamilyOrganisation, []string{"GB-1", "GB-2", "GB-2", "", "GB-3", "GB-4"})
	require.NoError(t, err)

	assert.Equal(t, models.VariantPublished, res["GB-1"].Variant)
	assert.Equal(t, models.VariantPhantom, res["GB-2"].Variant)
	assert.Equal(t, models.VariantPublished, res["GB-3"].Variant)
	assert.True(t, res["GB-3"].Ambiguous)
	assert.False(t, res["GB-4"].Resolved())
	assert.NotContains(t, res, "")

	// one set-oriented query with distinct ids
	require.Len(t, q.calls, 1)
	assert.Equal(t, "read", q.calls[0].mode)
	assert.Equal(t, []string{"GB-1", "GB-2", "GB-3", "GB-4"}, q.calls[0].params["ids"])
}

func TestResolver_MissingRecordIsUnresolved(t *testing.T) {
	q := &fakeQuerier{respond: func(c call) ([]map[string]any, error) {
		return []map[string]any{}, nil
	}}

	res, err := newTestResolver(q).Resolve(context.Background(), models.FamilyActivity, "XM-DAC-1")
	require.NoError(t, err)
	assert.Equal(t, "XM-DAC-1", res.ID)
	assert.False(t, res.Resolved())
}

func TestResolver_QueryFailureIsNotAMiss(t *testing.T) {
	q := &fakeQuerier{respond: func(c call) ([]map[string]any, error) {
		return nil, errors.New("connection reset")
	}}

	res, err := newTestResolver(q).ResolveMany(context.Background(), models.FamilyActivity, []string{"A"})
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestResolver_NoIDs(t *testing.T) {
	q := &fakeQuerier{}
	res, err := newTestResolver(q).ResolveMany(context.Background(), models.FamilyActivity, []string{"", ""})
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, q.calls)

	_, err = newTestResolver(q).ResolveMany(context.Background(), "person", []string{"x"})
	assert.Error(t, err)
}
