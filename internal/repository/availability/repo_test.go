package availability

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_GroupsOffersByEntity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"entity_id", "kind", "provider"}).
		AddRow("e1", "stream", "Netflix").
		AddRow("e1", "rent", "Apple TV").
		AddRow("e2", "buy", "Amazon")
	mock.ExpectQuery(`FROM availability`).
		WithArgs([]string{"e1", "e2", "e3"}, "GB").
		WillReturnRows(rows)

	repo := New(mock)
	facts, err := repo.Lookup(context.Background(), []string{"e1", "e2", "e3"}, "GB")
	require.NoError(t, err)

	require.Len(t, facts, 2)
	assert.Equal(t, []string{"Netflix"}, facts["e1"].Stream)
	assert.Equal(t, []string{"Apple TV"}, facts["e1"].Rent)
	assert.Equal(t, []string{"Amazon"}, facts["e2"].Buy)
	_, ok := facts["e3"]
	assert.False(t, ok, "entities without offers stay absent, not empty")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookup_EmptyEntitySet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	facts, err := repo.Lookup(context.Background(), nil, "GB")
	require.NoError(t, err)
	assert.Empty(t, facts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
