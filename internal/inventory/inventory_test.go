package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacmart/storefront/internal/inventory"
	"github.com/hvacmart/storefront/internal/testutil"
)

func TestReserveReleaseCommit(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.CreateProduct(t, db, "AC-15", "32000", 5)

	require.NoError(t, inventory.Reserve(db, p.ID, 3))
	inv := testutil.GetInventory(t, db, p.ID)
	assert.Equal(t, 5, inv.StockQuantity)
	assert.Equal(t, 3, inv.ReservedQuantity)

	err := inventory.Reserve(db, p.ID, 3)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	require.NoError(t, inventory.Commit(db, p.ID, 2))
	inv = testutil.GetInventory(t, db, p.ID)
	assert.Equal(t, 3, inv.StockQuantity)
	assert.Equal(t, 1, inv.ReservedQuantity)

	require.NoError(t, inventory.Release(db, p.ID, 1))
	assert.ErrorIs(t, inventory.Release(db, p.ID, 1), inventory.ErrReservationLost)
	assert.ErrorIs(t, inventory.Commit(db, p.ID, 1), inventory.ErrReservationLost)

	inv = testutil.GetInventory(t, db, p.ID)
	assert.Equal(t, 3, inv.StockQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)
}

func TestReserveUnknownProduct(t *testing.T) {
	db := testutil.NewDB(t)
	assert.ErrorIs(t, inventory.Reserve(db, 999, 1), inventory.ErrInsufficientStock)
}

func TestAdjust(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.CreateProduct(t, db, "AC-10", "28000", 4)
	require.NoError(t, inventory.Reserve(db, p.ID, 3))

	inv, err := inventory.Adjust(db, p.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, inv.StockQuantity)

	_, err = inventory.Adjust(db, p.ID, -8)
	assert.ErrorIs(t, err, inventory.ErrInvalidAdjustment)

	inv, err = inventory.Adjust(db, p.ID, -7)
	require.NoError(t, err)
	assert.Equal(t, 3, inv.StockQuantity)
	assert.Equal(t, 3, inv.ReservedQuantity)

	require.NoError(t, inventory.Restock(db, p.ID, 2))
	assert.Equal(t, 5, testutil.GetInventory(t, db, p.ID).StockQuantity)
}

func TestAdjustCreatesMissingRow(t *testing.T) {
	db := testutil.NewDB(t)
	inv, err := inventory.Adjust(db, 77, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, inv.StockQuantity)

	_, err = inventory.Adjust(db, 78, -1)
	assert.ErrorIs(t, err, inventory.ErrInvalidAdjustment)
}
