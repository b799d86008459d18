package syncapp

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
	"github.com/crmbridge/backend/internal/infrastructure/bitrix"
)

// DealProduct is one purchase-list product selected for deal creation,
// together with the suppliers the user chose for it.
type DealProduct struct {
	ProductID        int64                   `json:"crm_product_id"`
	CatalogProductID int64                   `json:"catalog_product_id"`
	Name             string                  `json:"name"`
	Quantity         decimal.Decimal         `json:"quantity"`
	Price            decimal.Decimal         `json:"price"`
	MeasureCode      int                     `json:"measure_code"`
	PriceRequest     bool                    `json:"checked"`
	DeliveryDate     string                  `json:"delivery_date,omitempty"`
	Suppliers        []reconcile.SupplierRef `json:"selected_suppliers"`
}

// CreatedDeal reports one deal written to the remote store.
type CreatedDeal struct {
	DealID    int64  `json:"bitrix_deal_id"`
	ContactID int64  `json:"bitrix_contact_id"`
	Title     string `json:"title"`
}

// DealService turns selected purchase products into deals, one per
// (supplier, price-request) pair.
type DealService struct {
	source RemoteSource
	log    *zap.Logger
}

// NewDealService creates a deal creation service.
func NewDealService(source RemoteSource, log *zap.Logger) *DealService {
	return &DealService{source: source, log: log.Named("sync.deals")}
}

type dealGroupKey struct {
	contactID    int64
	priceRequest bool
}

type dealGroup struct {
	contactID    int64
	name         string
	priceRequest bool
	deliveryDate string
	products     []DealProduct
}

// Create groups the products by supplier and price-request flag, then
// creates one deal per group and replaces its product rows atomically.
// Products with the same supplier but different flags land in separate
// deals; the delivery date of the first product in a group wins.
func (s *DealService) Create(ctx context.Context, products []DealProduct) ([]CreatedDeal, error) {
	remote, err := s.source.Remote()
	if err != nil {
		return nil, err
	}

	index := make(map[dealGroupKey]int)
	var groups []dealGroup
	for _, product := range products {
		for _, supplier := range product.Suppliers {
			key := dealGroupKey{contactID: supplier.ID, priceRequest: product.PriceRequest}
			i, ok := index[key]
			if !ok {
				index[key] = len(groups)
				groups = append(groups, dealGroup{
					contactID:    supplier.ID,
					name:         supplier.Name,
					priceRequest: product.PriceRequest,
					deliveryDate: s.parseDeliveryDate(product.DeliveryDate),
				})
				i = len(groups) - 1
			}
			groups[i].products = append(groups[i].products, product)
		}
	}

	deals := make([]CreatedDeal, 0, len(groups))
	for _, group := range groups {
		title := fmt.Sprintf("Сделка для %s", group.name)
		if group.priceRequest {
			title += " (Запрос цены)"
		}

		dealID, err := remote.Deals.Add(ctx, bitrix.DealInput{
			Title:        title,
			ContactID:    group.contactID,
			PriceRequest: group.priceRequest,
			DeliveryDate: group.deliveryDate,
		})
		if err != nil {
			return nil, err
		}

		items := make([]reconcile.DesiredItem, 0, len(group.products))
		for _, p := range group.products {
			measure := p.MeasureCode
			if measure == 0 {
				measure = reconcile.DefaultLineMeasureCode
			}
			items = append(items, reconcile.DesiredItem{
				CatalogProductID: p.CatalogProductID,
				ProductID:        p.ProductID,
				Name:             p.Name,
				Quantity:         p.Quantity,
				Price:            p.Price,
				MeasureCode:      measure,
			})
		}
		if err := remote.Deals.SetProductRows(ctx, dealID, items); err != nil {
			return nil, err
		}

		deals = append(deals, CreatedDeal{DealID: dealID, ContactID: group.contactID, Title: title})
	}

	s.log.Info("created deals", zap.Int("count", len(deals)))
	return deals, nil
}

// parseDeliveryDate converts a DD.MM.YYYY date to the ISO form the
// remote store expects. Anything malformed is dropped with a warning
// rather than failing deal creation.
func (s *DealService) parseDeliveryDate(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := time.Parse("02.01.2006", raw)
	if err != nil {
		s.log.Warn("invalid delivery date", zap.String("value", raw))
		return ""
	}
	return parsed.Format("2006-01-02")
}
