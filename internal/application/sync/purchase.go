package syncapp

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// SupplierGroup is the purchase list regrouped around one supplier: the
// products it carries, priced and bridged to catalog entries, ready for
// deal creation.
type SupplierGroup struct {
	ContactID    int64           `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Products     []LinkedProduct `json:"products"`
}

// PurchaseReport is the full outcome of a purchase upload: the merged
// product rows with their supplier annotations, plus the same data
// regrouped per supplier.
type PurchaseReport struct {
	Products  []reconcile.PurchaseRow `json:"products"`
	Suppliers []SupplierGroup         `json:"suppliers"`
}

// PurchaseService reconciles purchase-list uploads. Products are synced
// first, then each merged row is annotated with the supplier contacts
// whose product-id set contains it.
type PurchaseService struct {
	source RemoteSource
	log    *zap.Logger
}

// NewPurchaseService creates a purchase reconciliation service.
func NewPurchaseService(source RemoteSource, log *zap.Logger) *PurchaseService {
	return &PurchaseService{source: source, log: log.Named("sync.purchase")}
}

// Sync processes a purchase list. Duplicate rows are merged with summed
// quantities; negative quantities are clamped to zero with a warning.
// Supplier grouping only covers products that have a catalog entry,
// since a deal row cannot reference a product without one.
func (s *PurchaseService) Sync(ctx context.Context, records []reconcile.ProductRecord) (*PurchaseReport, error) {
	remote, err := s.source.Remote()
	if err != nil {
		return nil, err
	}

	synced, err := syncProducts(ctx, remote, reconcile.KindPurchase, records)
	if err != nil {
		return nil, err
	}

	byRemoteID := make(map[int64]reconcile.RemoteProduct, len(synced))
	rows := make([]reconcile.PurchaseRow, 0, len(synced))
	for _, sp := range synced {
		byRemoteID[sp.remote.ID] = sp.remote

		quantity := sp.record.Quantity
		if quantity.IsNegative() {
			s.log.Warn("negative quantity clamped to zero",
				zap.String("product", sp.record.Name),
				zap.String("quantity", quantity.String()))
			quantity = decimal.Zero
		}
		rows = append(rows, reconcile.PurchaseRow{
			RemoteID: sp.remote.ID,
			AccessID: sp.record.AccessID,
			Name:     sp.record.Name,
			Price:    sp.record.Price,
			Quantity: quantity,
		})
	}

	merged := reconcile.MergePurchaseRows(rows)

	suppliers, err := remote.Contacts.FetchSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range merged {
		merged[i].Suppliers = reconcile.SuppliersCarrying(merged[i].RemoteID, suppliers)
	}

	productIDs := make([]int64, 0, len(merged))
	for _, row := range merged {
		if len(row.Suppliers) > 0 {
			productIDs = append(productIDs, row.RemoteID)
		}
	}
	catalog, err := remote.Products.FetchCatalogByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	bridge := make(map[int64]int64, len(catalog))
	for _, entry := range catalog {
		bridge[entry.ParentID] = entry.ID
	}

	groups := s.groupBySupplier(merged, byRemoteID, bridge)

	s.log.Info("processed purchase list",
		zap.Int("rows", len(records)),
		zap.Int("products", len(merged)),
		zap.Int("suppliers", len(groups)))
	return &PurchaseReport{Products: merged, Suppliers: groups}, nil
}

func (s *PurchaseService) groupBySupplier(rows []reconcile.PurchaseRow, byRemoteID map[int64]reconcile.RemoteProduct, bridge map[int64]int64) []SupplierGroup {
	index := make(map[int64]int)
	var groups []SupplierGroup

	for _, row := range rows {
		catalogID, bridged := bridge[row.RemoteID]
		if !bridged {
			if len(row.Suppliers) > 0 {
				s.log.Warn("product has no catalog entry, excluded from supplier groups",
					zap.Int64("product_id", row.RemoteID), zap.String("name", row.Name))
			}
			continue
		}

		product := byRemoteID[row.RemoteID]
		measure := product.Measure
		if measure == 0 {
			measure = reconcile.DefaultLineMeasureCode
		}
		item := LinkedProduct{
			ProductID:        row.RemoteID,
			CatalogProductID: catalogID,
			AccessID:         row.AccessID,
			Name:             row.Name,
			Quantity:         row.Quantity,
			Price:            product.Price,
			MeasureCode:      measure,
		}

		for _, ref := range row.Suppliers {
			i, ok := index[ref.ID]
			if !ok {
				index[ref.ID] = len(groups)
				groups = append(groups, SupplierGroup{ContactID: ref.ID, SupplierName: ref.Name})
				i = len(groups) - 1
			}
			groups[i].Products = append(groups[i].Products, item)
		}
	}
	return groups
}
