package accessdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&productModel{}, &supplierModel{}))
	require.NoError(t, db.Create([]productModel{
		{ID: 101, Name: "Мука пшеничная", Price: 12.5, Unit: "кг"},
		{ID: 102, Name: "Сахар", Price: 30, Unit: "кг"},
	}).Error)
	require.NoError(t, db.Create([]supplierModel{
		{ID: 7, Name: "ООО Ромашка"},
	}).Error)

	return NewStore(db, zap.NewNop())
}

func TestStoreProducts(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	products, err := store.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "101", products[0].AccessID)
	assert.Equal(t, "Мука пшеничная", products[0].Name)
	assert.Equal(t, "12.5", products[0].Price.String())
	assert.Equal(t, "кг", products[0].Unit)
}

func TestStoreSuppliers(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	suppliers, err := store.Suppliers(context.Background())
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	assert.Equal(t, "7", suppliers[0].AccessID)
	assert.Equal(t, "ООО Ромашка", suppliers[0].Name)
}
