package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/testutil"
)

func TestListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	split := &domain.Category{Name: "Split AC", Slug: "split-ac"}
	require.NoError(t, db.Create(split).Error)

	a := testutil.CreateProduct(t, db, "SPLIT-15", "32000", 4)
	b := testutil.CreateProduct(t, db, "SPLIT-20", "41000", 0)
	c := testutil.CreateProduct(t, db, "WIN-10", "21000", 2)
	require.NoError(t, db.Model(a).Updates(map[string]interface{}{"category_id": split.ID, "tonnage": "1.5", "energy_rating": 5}).Error)
	require.NoError(t, db.Model(b).Updates(map[string]interface{}{"category_id": split.ID, "tonnage": "2", "energy_rating": 3, "brand": "Daikin"}).Error)
	require.NoError(t, db.Model(c).Update("status", domain.ProductInactive).Error)

	t.Run("active only by default", func(t *testing.T) {
		rows, total, err := catalog.List(ctx, db, catalog.Filter{}, 1, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, rows, 2)
		require.NotNil(t, rows[0].Inventory)
	})

	t.Run("category slug and brand", func(t *testing.T) {
		_, total, err := catalog.List(ctx, db, catalog.Filter{Category: "split-ac", Brand: "daikin"}, 1, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("price range and sort", func(t *testing.T) {
		floor := decimal.NewFromInt(30000)
		rows, _, err := catalog.List(ctx, db, catalog.Filter{MinPrice: &floor, Sort: "price_desc"}, 1, 20)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "SPLIT-20", rows[0].Sku)
	})

	t.Run("in stock and query", func(t *testing.T) {
		rows, _, err := catalog.List(ctx, db, catalog.Filter{InStock: true, Query: "split"}, 1, 20)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, a.ID, rows[0].ID)
	})

	t.Run("all statuses", func(t *testing.T) {
		_, total, err := catalog.List(ctx, db, catalog.Filter{Status: "ALL"}, 1, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})
}

func TestFind(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, db, "SPLIT-15", "32000", 4)

	got, err := catalog.Find(ctx, db, "split-15", false)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	require.NoError(t, db.Model(p).Update("status", domain.ProductInactive).Error)
	_, err = catalog.Find(ctx, db, "split-15", false)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	got, err = catalog.Find(ctx, db, "split-15", true)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Inventory.StockQuantity)
}

func TestRecomputeRating(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.CreateProduct(t, db, "SPLIT-15", "32000", 4)
	for i, r := range []struct {
		rating int
		status string
	}{{5, domain.ReviewApproved}, {4, domain.ReviewApproved}, {1, domain.ReviewPending}} {
		u := testutil.CreateUser(t, db, []string{"a@x.in", "b@x.in", "c@x.in"}[i])
		require.NoError(t, db.Create(&domain.Review{ProductID: p.ID, UserID: u.ID, Rating: r.rating, Status: r.status}).Error)
	}

	require.NoError(t, catalog.RecomputeRating(db, p.ID))
	var got domain.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 2, got.ReviewCount)
}
