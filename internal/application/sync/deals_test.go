package syncapp

import (
	"context"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
	"github.com/crmbridge/backend/internal/infrastructure/bitrix"
)

func TestDealCreateGroupsBySupplierAndFlag(t *testing.T) {
	nextID := int64(500)
	portal := &fakePortal{t: t}
	portal.respond = func(method string, params url.Values) (any, *bitrix.CommandFault) {
		switch method {
		case "crm.deal.add":
			require.Equal(t, "12", params.Get("fields[CATEGORY_ID]"))
			require.Equal(t, "122", params.Get("fields[ASSIGNED_BY_ID]"))
			nextID++
			return nextID, nil
		case "crm.deal.productrows.set":
			return true, nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	}
	source := newTestSource(t, portal)
	svc := NewDealService(source, zap.NewNop())

	romashka := reconcile.SupplierRef{ID: 70, Name: "ООО Ромашка"}
	ivanov := reconcile.SupplierRef{ID: 71, Name: "ИП Иванов"}

	products := []DealProduct{
		{
			ProductID: 31, CatalogProductID: 310, Name: "Мука",
			Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(10), MeasureCode: 7,
			PriceRequest: true, DeliveryDate: "05.09.2026",
			Suppliers: []reconcile.SupplierRef{romashka},
		},
		{
			ProductID: 32, CatalogProductID: 320, Name: "Сахар",
			Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(20),
			Suppliers: []reconcile.SupplierRef{romashka},
		},
		{
			ProductID: 33, CatalogProductID: 330, Name: "Соль",
			Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(5), MeasureCode: 9,
			Suppliers: []reconcile.SupplierRef{ivanov},
		},
	}

	deals, err := svc.Create(context.Background(), products)
	require.NoError(t, err)
	require.Len(t, deals, 3)

	// Same supplier, different price-request flag: separate deals.
	assert.Equal(t, "Сделка для ООО Ромашка (Запрос цены)", deals[0].Title)
	assert.Equal(t, int64(70), deals[0].ContactID)
	assert.Equal(t, "Сделка для ООО Ромашка", deals[1].Title)
	assert.Equal(t, int64(70), deals[1].ContactID)
	assert.Equal(t, "Сделка для ИП Иванов", deals[2].Title)
	assert.Equal(t, int64(71), deals[2].ContactID)

	assert.Equal(t, 3, portal.count("crm.deal.add"))
	assert.Equal(t, 3, portal.count("crm.deal.productrows.set"))
}

func TestDealCreateWritesFlagDateAndRows(t *testing.T) {
	portal := &fakePortal{t: t}
	portal.respond = func(method string, params url.Values) (any, *bitrix.CommandFault) {
		switch method {
		case "crm.deal.add":
			require.Equal(t, "Y", params.Get("fields[UF_CRM_PRICE_REQUEST]"))
			require.Equal(t, "2026-09-05", params.Get("fields[UF_CRM_DELIVERY_DATE]"))
			return 500, nil
		case "crm.deal.productrows.set":
			require.Equal(t, "500", params.Get("id"))
			require.Equal(t, "310", params.Get("rows[0][PRODUCT_ID]"))
			require.Equal(t, "5", params.Get("rows[0][QUANTITY]"))
			// A product without a measure falls back to the line default.
			require.Equal(t, "796", params.Get("rows[0][MEASURE_CODE]"))
			return true, nil
		default:
			t.Fatalf("unexpected method %s", method)
			return nil, nil
		}
	}
	source := newTestSource(t, portal)
	svc := NewDealService(source, zap.NewNop())

	deals, err := svc.Create(context.Background(), []DealProduct{{
		ProductID: 31, CatalogProductID: 310, Name: "Мука",
		Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(10),
		PriceRequest: true, DeliveryDate: "05.09.2026",
		Suppliers: []reconcile.SupplierRef{{ID: 70, Name: "ООО Ромашка"}},
	}})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, int64(500), deals[0].DealID)
}

func TestDealParseDeliveryDate(t *testing.T) {
	svc := NewDealService(nil, zap.NewNop())

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "valid", in: "05.09.2026", want: "2026-09-05"},
		{name: "empty", in: "", want: ""},
		{name: "wrong separator", in: "05-09-2026", want: ""},
		{name: "iso already", in: "2026-09-05", want: ""},
		{name: "impossible date", in: "31.02.2026", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.parseDeliveryDate(tt.in))
		})
	}
}
