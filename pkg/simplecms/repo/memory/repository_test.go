package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

func seedRepository(t *testing.T) *Repository {
	t.Helper()
	repo := New()
	ctx := context.Background()

	rows := []simplecms.Record{
		{"name": "Alpha", "city": "Austin", "seats": int64(40)},
		{"name": "Bravo", "city": "Boston", "seats": int64(12)},
		{"name": "Charlie", "city": "Austin", "seats": int64(85)},
		{"name": "Delta", "city": "Denver", "seats": int64(20)},
	}
	for _, rec := range rows {
		_, err := repo.Insert(ctx, "stores", rec)
		require.NoError(t, err)
	}
	return repo
}

func TestQueryFilterSortPage(t *testing.T) {
	repo := seedRepository(t)
	ctx := context.Background()

	t.Run("equality filter", func(t *testing.T) {
		rows, err := repo.Query(ctx, "stores", simplecms.Query{
			Filters: []simplecms.Filter{
				{Field: "city", Op: simplecms.FilterEquals, Value: "Austin"},
			},
			SortField: "name",
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Alpha", rows[0].String("name"))
		assert.Equal(t, "Charlie", rows[1].String("name"))
	})

	t.Run("contains filter ignores case", func(t *testing.T) {
		rows, err := repo.Query(ctx, "stores", simplecms.Query{
			Filters: []simplecms.Filter{
				{Field: "name", Op: simplecms.FilterContains, Value: "RAV"},
			},
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Bravo", rows[0].String("name"))
	})

	t.Run("numeric sort descending", func(t *testing.T) {
		rows, err := repo.Query(ctx, "stores", simplecms.Query{
			SortField: "seats",
			SortDesc:  true,
		})
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, int64(85), rows[0].Int64("seats"))
		assert.Equal(t, int64(12), rows[3].Int64("seats"))
	})

	t.Run("skip and take", func(t *testing.T) {
		rows, err := repo.Query(ctx, "stores", simplecms.Query{
			SortField: "name",
			Skip:      1,
			Take:      2,
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Bravo", rows[0].String("name"))
		assert.Equal(t, "Charlie", rows[1].String("name"))
	})

	t.Run("skip past the end", func(t *testing.T) {
		rows, err := repo.Query(ctx, "stores", simplecms.Query{Skip: 10})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("search over declared fields", func(t *testing.T) {
		rows, err := repo.Query(ctx, "stores", simplecms.Query{
			Search:       "aus",
			SearchFields: []string{"city"},
		})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("count ignores bounds", func(t *testing.T) {
		total, err := repo.Count(ctx, "stores", simplecms.CountQuery{
			Filters: []simplecms.Filter{
				{Field: "city", Op: simplecms.FilterEquals, Value: "Austin"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})
}

func TestQueryReturnsCopies(t *testing.T) {
	repo := seedRepository(t)
	ctx := context.Background()

	rows, err := repo.Query(ctx, "stores", simplecms.Query{SortField: "name", Take: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Mutating the returned record must not leak into the repository.
	rows[0]["name"] = "Mutated"

	stored, err := repo.Get(ctx, "stores", rows[0].ID())
	require.NoError(t, err)
	assert.Equal(t, "Alpha", stored.String("name"))
}

func TestGetWithRelations(t *testing.T) {
	repo := New()
	ctx := context.Background()

	parent, err := repo.Insert(ctx, "stores", simplecms.Record{"name": "Alpha"})
	require.NoError(t, err)
	other, err := repo.Insert(ctx, "stores", simplecms.Record{"name": "Bravo"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := repo.Insert(ctx, "store_images", simplecms.Record{"store_id": parent.ID()})
		require.NoError(t, err)
	}
	_, err = repo.Insert(ctx, "store_images", simplecms.Record{"store_id": other.ID()})
	require.NoError(t, err)

	relations := []simplecms.RelationDescriptor{
		{Child: "store_images", ForeignKey: "store_id", Cascade: true},
	}

	graph, err := repo.GetWithRelations(ctx, "stores", parent.ID(), relations)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", graph.Record.String("name"))
	assert.Len(t, graph.Children["store_images"], 3)

	_, err = repo.GetWithRelations(ctx, "stores", 999, relations)
	assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
}

func TestDeleteByField(t *testing.T) {
	repo := New()
	ctx := context.Background()

	for _, storeID := range []int64{1, 1, 2} {
		_, err := repo.Insert(ctx, "store_images", simplecms.Record{"store_id": storeID})
		require.NoError(t, err)
	}

	require.NoError(t, repo.DeleteByField(ctx, "store_images", "store_id", int64(1)))

	rows, err := repo.Query(ctx, "store_images", simplecms.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Int64("store_id"))
}

func TestUpdatePositionsAtomicity(t *testing.T) {
	repo := New()
	ctx := context.Background()

	var ids []int64
	for i := 1; i <= 3; i++ {
		rec, err := repo.Insert(ctx, "faqs", simplecms.Record{"position": i})
		require.NoError(t, err)
		ids = append(ids, rec.ID())
	}

	err := repo.UpdatePositions(ctx, "faqs", []simplecms.PositionUpdate{
		{ID: ids[0], Position: 3},
		{ID: 999, Position: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)

	// The valid update listed before the missing id must not have landed.
	rec, err := repo.Get(ctx, "faqs", ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Position())

	require.NoError(t, repo.UpdatePositions(ctx, "faqs", []simplecms.PositionUpdate{
		{ID: ids[0], Position: 3},
		{ID: ids[2], Position: 1},
	}))
	rec, err = repo.Get(ctx, "faqs", ids[0])
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Position())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	repo := New()
	ctx := context.Background()

	kept, err := repo.Insert(ctx, "stores", simplecms.Record{"name": "Alpha"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.WithTx(ctx, func(tx simplecms.Repository) error {
		if err := tx.Delete(ctx, "stores", kept.ID()); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, "stores", simplecms.Record{"name": "Bravo"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := repo.Query(ctx, "stores", simplecms.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alpha", rows[0].String("name"))
}

func TestWithTxCommits(t *testing.T) {
	repo := New()
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx simplecms.Repository) error {
		_, err := tx.Insert(ctx, "stores", simplecms.Record{"name": "Alpha"})
		return err
	})
	require.NoError(t, err)

	total, err := repo.Count(ctx, "stores", simplecms.CountQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
