package recordsource

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

func newTestSource(t *testing.T) *Source {
	t.Helper()
	return NewSource(Columns{}, zap.NewNop())
}

func TestParsePurchaseFile(t *testing.T) {
	data := []byte("" +
		"Заказ на неделю,,,,\n" + // title line above the real header
		"ZutatenLagerID,ZutatenLager,ZutLagBestellen,ZutatenLager_Tagespreis,EinheitID\n" +
		"101,Мука пшеничная,5,\"12,50\",кг\n" +
		"102,Сахар,2,30,кг\n" +
		",Без идентификатора,1,10,шт\n" + // dropped: product id missing
		"103,Дрожжи,,5,г\n") // dropped: amount missing

	file, err := newTestSource(t).Parse(reconcile.KindPurchase, data)
	require.NoError(t, err)
	require.Len(t, file.Products, 2)

	first := file.Products[0]
	assert.Equal(t, "101", first.AccessID)
	assert.Equal(t, "Мука пшеничная", first.Name)
	assert.True(t, first.Price.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "кг", first.Unit)
}

func TestParseRawFileKeepsRowsWithoutAmount(t *testing.T) {
	data := []byte("" +
		"ZutatenLagerID;ZutatenLager;ZutatenLager_Tagespreis;EinheitID\n" +
		"101;Мука пшеничная;12,50;кг\n" +
		"103;Дрожжи;;г\n")

	file, err := newTestSource(t).Parse(reconcile.KindRaw, data)
	require.NoError(t, err)
	require.Len(t, file.Products, 2)

	// The price column is optional for non-purchase kinds; empty means zero.
	assert.True(t, file.Products[1].Price.IsZero())
}

func TestParseSuppliersFile(t *testing.T) {
	data := []byte("\xef\xbb\xbf" +
		"LieferantID,Firma\n" +
		"7,ООО Ромашка\n" +
		"8,ИП Иванов\n")

	file, err := newTestSource(t).Parse(reconcile.KindSuppliers, data)
	require.NoError(t, err)
	require.Len(t, file.Suppliers, 2)
	assert.Equal(t, "7", file.Suppliers[0].AccessID)
	assert.Equal(t, "ООО Ромашка", file.Suppliers[0].Name)
}

func TestParseSupplierProductFile(t *testing.T) {
	data := []byte("" +
		"LieferantID,Firma,ZutatenLagerID,ZutatenLager\n" +
		"7,ООО Ромашка,101,Мука пшеничная\n")

	file, err := newTestSource(t).Parse(reconcile.KindSupplierProduct, data)
	require.NoError(t, err)
	require.Len(t, file.Links, 1)

	link := file.Links[0]
	assert.Equal(t, "7", link.SupplierAccessID)
	assert.Equal(t, "101", link.ProductAccessID)
	assert.Equal(t, "Мука пшеничная", link.ProductName)
}

func TestParseErrors(t *testing.T) {
	src := newTestSource(t)

	tests := []struct {
		name string
		kind reconcile.RecordKind
		data []byte
		want error
	}{
		{"empty file", reconcile.KindPurchase, nil, ErrEmptyFile},
		{"not utf-8", reconcile.KindPurchase, []byte{0xD0, 0x9C, 0xFF, 0xFE}, ErrInvalidEncoding},
		{
			"header missing required column",
			reconcile.KindPurchase,
			[]byte("ZutatenLagerID,ZutatenLager\n101,Мука\n"),
			ErrHeaderNotFound,
		},
		{
			"no valid rows below header",
			reconcile.KindSuppliers,
			[]byte("LieferantID,Firma\n,\n7,\n"),
			ErrNoDataRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Parse(tt.kind, tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestColumnsOverride(t *testing.T) {
	src := NewSource(Columns{ProductID: "ItemID", ProductName: "Item"}, zap.NewNop())

	file, err := src.Parse(reconcile.KindRaw, []byte("ItemID,Item\n55,Какао\n"))
	require.NoError(t, err)
	require.Len(t, file.Products, 1)
	assert.Equal(t, "55", file.Products[0].AccessID)
}
