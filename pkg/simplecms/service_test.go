package simplecms_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	memoryrepo "github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	memorystorage "github.com/tendant/simple-cms/pkg/simplecms/storage/memory"
)

func testRegistry(t *testing.T) *simplecms.Registry {
	t.Helper()
	registry := simplecms.NewRegistry()

	require.NoError(t, registry.Register(simplecms.EntityDescriptor{
		Name: "articles",
		Fields: []simplecms.FieldDescriptor{
			{Name: "id", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeInt},
			{Name: "title", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeText},
			{Name: "body", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeText},
			{Name: "cover_path", Kind: simplecms.FieldAsset, Type: simplecms.FieldTypeText},
			{Name: "created_at", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeTimestamp},
			{Name: "updated_at", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeTimestamp},
		},
		Relations: []simplecms.RelationDescriptor{
			{Child: "article_images", ForeignKey: "article_id", Cascade: true},
		},
		SearchFields: []string{"title", "body"},
	}))

	require.NoError(t, registry.Register(simplecms.EntityDescriptor{
		Name: "article_images",
		Fields: []simplecms.FieldDescriptor{
			{Name: "id", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeInt},
			{Name: "article_id", Kind: simplecms.FieldRelationKey, Type: simplecms.FieldTypeInt},
			{Name: "image_path", Kind: simplecms.FieldAsset, Type: simplecms.FieldTypeText},
			{Name: "caption", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeText},
			{Name: "created_at", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeTimestamp},
			{Name: "updated_at", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeTimestamp},
		},
	}))

	require.NoError(t, registry.Register(simplecms.EntityDescriptor{
		Name: "banners",
		Fields: []simplecms.FieldDescriptor{
			{Name: "id", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeInt},
			{Name: "headline", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeText},
			{Name: "image_path", Kind: simplecms.FieldAsset, Type: simplecms.FieldTypeText},
			{Name: "position", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeInt},
			{Name: "created_at", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeTimestamp},
			{Name: "updated_at", Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeTimestamp},
		},
		Ordered: true,
	}))

	require.NoError(t, registry.Freeze())
	return registry
}

func setupTestService(t *testing.T) (simplecms.Service, *memoryrepo.Repository, *memorystorage.Store) {
	t.Helper()
	repo := memoryrepo.New()
	store := memorystorage.New()

	svc, err := simplecms.New(
		simplecms.WithRegistry(testRegistry(t)),
		simplecms.WithRepository(repo),
		simplecms.WithBlobStore(store),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc, repo, store
}

func TestServiceCreation(t *testing.T) {
	registry := simplecms.NewRegistry()
	require.NoError(t, registry.Freeze())

	tests := []struct {
		name        string
		options     []simplecms.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simplecms.Option{},
			expectError: true,
		},
		{
			name: "missing blob store should fail",
			options: []simplecms.Option{
				simplecms.WithRegistry(registry),
				simplecms.WithRepository(memoryrepo.New()),
			},
			expectError: true,
		},
		{
			name: "full wiring should succeed",
			options: []simplecms.Option{
				simplecms.WithRegistry(registry),
				simplecms.WithRepository(memoryrepo.New()),
				simplecms.WithBlobStore(memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simplecms.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, "articles", simplecms.Record{
			"title": "article " + string(rune('a'+i)),
		})
		require.NoError(t, err)
	}

	t.Run("page size bounds the rows", func(t *testing.T) {
		page, err := svc.List(ctx, "articles", simplecms.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Data, 10)
		assert.Equal(t, int64(25), page.Total)
	})

	t.Run("last page is partial", func(t *testing.T) {
		page, err := svc.List(ctx, "articles", simplecms.PageRequest{Page: 3, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Data, 5)
		assert.Equal(t, int64(25), page.Total)
	})

	t.Run("page beyond the end is empty, total unchanged", func(t *testing.T) {
		page, err := svc.List(ctx, "articles", simplecms.PageRequest{Page: 9, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Data)
		assert.Equal(t, int64(25), page.Total)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := svc.List(ctx, "ghosts", simplecms.PageRequest{Page: 1, PageSize: 10})
		assert.ErrorIs(t, err, simplecms.ErrEntityNotFound)
	})
}

func TestListFilterAndSearch(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	titles := []string{"Summer Opening", "Winter Market", "Summer Sale"}
	for _, title := range titles {
		_, err := svc.Create(ctx, "articles", simplecms.Record{"title": title, "body": "details"})
		require.NoError(t, err)
	}

	t.Run("contains filter is case-insensitive", func(t *testing.T) {
		page, err := svc.List(ctx, "articles", simplecms.PageRequest{
			Page: 1, PageSize: 10,
			Filters: map[string]string{"title": "summer"},
		})
		require.NoError(t, err)
		assert.Len(t, page.Data, 2)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("count ignores page bounds", func(t *testing.T) {
		page, err := svc.List(ctx, "articles", simplecms.PageRequest{
			Page: 1, PageSize: 1,
			Filters: map[string]string{"title": "summer"},
		})
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("search spans the declared fields", func(t *testing.T) {
		page, err := svc.List(ctx, "articles", simplecms.PageRequest{
			Page: 1, PageSize: 10, Search: "market",
		})
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
		assert.Equal(t, "Winter Market", page.Data[0].String("title"))
	})

	t.Run("unknown filter field matches everything", func(t *testing.T) {
		page, err := svc.List(ctx, "articles", simplecms.PageRequest{
			Page: 1, PageSize: 10,
			Filters: map[string]string{"bogus": "value"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
	})
}

func TestDeleteCascade(t *testing.T) {
	svc, repo, store := setupTestService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, "articles", simplecms.Record{
		"title":      "with images",
		"cover_path": "uploads/articles/cover.png",
	})
	require.NoError(t, err)

	withAsset, err := svc.Create(ctx, "article_images", simplecms.Record{
		"article_id": article.ID(),
		"image_path": "uploads/article_images/1.png",
	})
	require.NoError(t, err)
	withoutAsset, err := svc.Create(ctx, "article_images", simplecms.Record{
		"article_id": article.ID(),
		"caption":    "no file attached",
	})
	require.NoError(t, err)

	result, err := svc.Delete(ctx, "articles", article.ID())
	require.NoError(t, err)
	assert.False(t, result.AlreadyDeleted)

	// One release per non-null asset: the child image plus the parent
	// cover. The null child asset is skipped, not attempted.
	assert.Equal(t, 2, result.AssetsReleased)
	assert.ElementsMatch(t,
		[]string{"uploads/article_images/1.png", "uploads/articles/cover.png"},
		store.Deletes())

	_, err = repo.Get(ctx, "articles", article.ID())
	assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
	_, err = repo.Get(ctx, "article_images", withAsset.ID())
	assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
	_, err = repo.Get(ctx, "article_images", withoutAsset.ID())
	assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, "articles", simplecms.Record{"title": "gone soon"})
	require.NoError(t, err)

	first, err := svc.Delete(ctx, "articles", article.ID())
	require.NoError(t, err)
	assert.False(t, first.AlreadyDeleted)

	// Deleting an id that is already gone succeeds.
	second, err := svc.Delete(ctx, "articles", article.ID())
	require.NoError(t, err)
	assert.True(t, second.AlreadyDeleted)
	assert.Zero(t, second.AssetsReleased)
}

func TestDeleteSurvivesBlobStoreFailure(t *testing.T) {
	svc, repo, store := setupTestService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, "articles", simplecms.Record{
		"title":      "stubborn blob",
		"cover_path": "uploads/articles/stuck.png",
	})
	require.NoError(t, err)
	image, err := svc.Create(ctx, "article_images", simplecms.Record{
		"article_id": article.ID(),
		"image_path": "uploads/article_images/stuck.png",
	})
	require.NoError(t, err)

	store.FailDeletes = true

	result, err := svc.Delete(ctx, "articles", article.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, result.AssetsReleased)

	// The rows are gone even though every blob delete failed.
	_, err = repo.Get(ctx, "articles", article.ID())
	assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
	_, err = repo.Get(ctx, "article_images", image.ID())
	assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
}

func TestReorder(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	var ids []int64
	for _, headline := range []string{"A", "B", "C"} {
		rec, err := svc.Create(ctx, "banners", simplecms.Record{"headline": headline})
		require.NoError(t, err)
		ids = append(ids, rec.ID())
	}
	a, b, c := ids[0], ids[1], ids[2]

	t.Run("create appends positions", func(t *testing.T) {
		page, err := svc.List(ctx, "banners", simplecms.PageRequest{
			Page: 1, PageSize: 10, SortBy: "position", SortOrder: "asc",
		})
		require.NoError(t, err)
		require.Len(t, page.Data, 3)
		assert.Equal(t, "A", page.Data[0].String("headline"))
		assert.Equal(t, 1, page.Data[0].Position())
		assert.Equal(t, 3, page.Data[2].Position())
	})

	t.Run("reorder commits and re-reads", func(t *testing.T) {
		rows, err := svc.Reorder(ctx, "banners", simplecms.ReorderRequest{IDs: []int64{c, a, b}})
		require.NoError(t, err)

		require.Len(t, rows, 3)
		assert.Equal(t, c, rows[0].ID())
		assert.Equal(t, a, rows[1].ID())
		assert.Equal(t, b, rows[2].ID())
		assert.Equal(t, 1, rows[0].Position())
		assert.Equal(t, 2, rows[1].Position())
		assert.Equal(t, 3, rows[2].Position())
	})

	t.Run("duplicate id rejected before any write", func(t *testing.T) {
		_, err := svc.Reorder(ctx, "banners", simplecms.ReorderRequest{IDs: []int64{a, a, b}})

		var reorderErr *simplecms.ReorderError
		require.ErrorAs(t, err, &reorderErr)
		assert.ErrorIs(t, err, simplecms.ErrDuplicateID)
		assert.Equal(t, a, reorderErr.ID)

		assertOrder(t, svc, []int64{c, a, b})
	})

	t.Run("missing id rejected naming the id", func(t *testing.T) {
		_, err := svc.Reorder(ctx, "banners", simplecms.ReorderRequest{IDs: []int64{a, b, 999}})

		var reorderErr *simplecms.ReorderError
		require.ErrorAs(t, err, &reorderErr)
		assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
		assert.Equal(t, int64(999), reorderErr.ID)

		assertOrder(t, svc, []int64{c, a, b})
	})

	t.Run("empty request rejected", func(t *testing.T) {
		_, err := svc.Reorder(ctx, "banners", simplecms.ReorderRequest{})
		assert.ErrorIs(t, err, simplecms.ErrEmptyReorder)
	})

	t.Run("unordered entity rejected", func(t *testing.T) {
		_, err := svc.Reorder(ctx, "articles", simplecms.ReorderRequest{IDs: []int64{1}})
		assert.ErrorIs(t, err, simplecms.ErrNotOrdered)
	})
}

func assertOrder(t *testing.T, svc simplecms.Service, want []int64) {
	t.Helper()
	page, err := svc.List(context.Background(), "banners", simplecms.PageRequest{
		Page: 1, PageSize: 10, SortBy: "position", SortOrder: "asc",
	})
	require.NoError(t, err)
	got := make([]int64, len(page.Data))
	for i, rec := range page.Data {
		got[i] = rec.ID()
	}
	assert.Equal(t, want, got)
}

func TestAttachAsset(t *testing.T) {
	svc, _, store := setupTestService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, "articles", simplecms.Record{"title": "illustrated"})
	require.NoError(t, err)

	rec, err := svc.AttachAsset(ctx, "articles", article.ID(), "cover_path",
		"cover photo.png", bytes.NewReader([]byte("png bytes")))
	require.NoError(t, err)

	locator := rec.String("cover_path")
	require.NotEmpty(t, locator)
	assert.True(t, strings.HasPrefix(locator, "uploads/articles/cover_path/"), locator)
	assert.True(t, store.Exists(locator))

	t.Run("replacing releases the previous blob", func(t *testing.T) {
		updated, err := svc.AttachAsset(ctx, "articles", article.ID(), "cover_path",
			"cover2.png", bytes.NewReader([]byte("new bytes")))
		require.NoError(t, err)

		next := updated.String("cover_path")
		assert.NotEqual(t, locator, next)
		assert.True(t, store.Exists(next))
		assert.False(t, store.Exists(locator))
	})

	t.Run("non-asset field rejected", func(t *testing.T) {
		_, err := svc.AttachAsset(ctx, "articles", article.ID(), "title",
			"x.png", bytes.NewReader(nil))
		assert.ErrorIs(t, err, simplecms.ErrNotAssetField)
	})

	t.Run("download round-trips", func(t *testing.T) {
		body, err := svc.OpenAsset(ctx, "articles", article.ID(), "cover_path")
		require.NoError(t, err)
		defer body.Close()

		buf := new(bytes.Buffer)
		_, err = buf.ReadFrom(body)
		require.NoError(t, err)
		assert.Equal(t, "new bytes", buf.String())
	})
}

func TestUpdateSanitizesFields(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, "articles", simplecms.Record{"title": "before"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "articles", article.ID(), simplecms.Record{
		"title":   "after",
		"id":      int64(999),
		"unknown": "dropped",
	})
	require.NoError(t, err)

	assert.Equal(t, "after", updated.String("title"))
	assert.Equal(t, article.ID(), updated.ID())
	assert.NotContains(t, updated, "unknown")

	t.Run("missing record", func(t *testing.T) {
		_, err := svc.Update(ctx, "articles", 12345, simplecms.Record{"title": "x"})
		assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
	})
}
