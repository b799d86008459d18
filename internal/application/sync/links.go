package syncapp

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// LinkedProduct is one product attached to a supplier, expressed in
// both product and catalog-product terms.
type LinkedProduct struct {
	ProductID        int64           `json:"crm_product_id"`
	CatalogProductID int64           `json:"catalog_product_id"`
	AccessID         string          `json:"access_id,omitempty"`
	Name             string          `json:"name"`
	Quantity         decimal.Decimal `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	MeasureCode      int             `json:"measure_code"`
}

// LinkGroup is the outcome for one supplier from a supplier-product
// upload: the contact touched, the relationship record holding its line
// items, and the products linked to it.
type LinkGroup struct {
	SupplierAccessID string          `json:"supplier_id"`
	SupplierName     string          `json:"supplier_name"`
	ContactID        int64           `json:"bitrix_contact_id"`
	RecordID         int64           `json:"bitrix_deal_id"`
	Products         []LinkedProduct `json:"products"`
}

// SupplierProductService reconciles supplier-product link uploads: it
// maintains the product-id set on each supplier contact and keeps the
// supplier's relationship record line items in step with the file.
type SupplierProductService struct {
	source RemoteSource
	log    *zap.Logger
}

// NewSupplierProductService creates a link reconciliation service.
func NewSupplierProductService(source RemoteSource, log *zap.Logger) *SupplierProductService {
	return &SupplierProductService{source: source, log: log.Named("sync.links")}
}

type linkGroupInput struct {
	supplierID   string
	supplierName string
	products     []reconcile.SupplierProductLink
}

// groupLinks buckets link rows by supplier access id, preserving
// first-seen order.
func groupLinks(links []reconcile.SupplierProductLink) []linkGroupInput {
	index := make(map[string]int, len(links))
	var groups []linkGroupInput
	for _, link := range links {
		key := reconcile.Fold(link.SupplierAccessID)
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, linkGroupInput{
				supplierID:   link.SupplierAccessID,
				supplierName: link.SupplierName,
			})
			i = len(groups) - 1
		}
		groups[i].products = append(groups[i].products, link)
	}
	return groups
}

// Sync applies a supplier-product upload. Suppliers or products absent
// from the remote store are logged and skipped rather than failing the
// file; the contact's product-id set only ever grows, so re-uploading
// the same file performs no writes.
func (s *SupplierProductService) Sync(ctx context.Context, links []reconcile.SupplierProductLink) ([]LinkGroup, error) {
	remote, err := s.source.Remote()
	if err != nil {
		return nil, err
	}

	groups := groupLinks(links)

	supplierIDs := make([]string, 0, len(groups))
	productIDs := make([]string, 0, len(links))
	seenProducts := make(map[string]struct{}, len(links))
	for _, g := range groups {
		supplierIDs = append(supplierIDs, g.supplierID)
		for _, link := range g.products {
			key := reconcile.Fold(link.ProductAccessID)
			if _, dup := seenProducts[key]; dup {
				continue
			}
			seenProducts[key] = struct{}{}
			productIDs = append(productIDs, link.ProductAccessID)
		}
	}

	contacts, err := remote.Contacts.FetchByAccessIDs(ctx, supplierIDs)
	if err != nil {
		return nil, err
	}
	products, err := remote.Products.FetchByAccessIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	contactIDs := make([]int64, 0, len(contacts))
	for _, c := range contacts {
		contactIDs = append(contactIDs, c.ID)
	}
	currentSets, err := remote.Contacts.FetchProductIDs(ctx, contactIDs)
	if err != nil {
		return nil, err
	}
	records, err := remote.Items.FetchByContactIDs(ctx, contactIDs)
	if err != nil {
		return nil, err
	}

	// Bridge every referenced product to its catalog entry up front;
	// line items cannot be written without the catalog id.
	usedProductIDs := make([]int64, 0, len(products))
	for _, p := range products {
		usedProductIDs = append(usedProductIDs, p.ID)
	}
	bridge, err := remote.Products.EnsureCatalog(ctx, usedProductIDs)
	if err != nil {
		return nil, err
	}

	results := make([]LinkGroup, 0, len(groups))
	for _, group := range groups {
		contact, ok := reconcile.FindContact(group.supplierID, contacts)
		if !ok {
			s.log.Warn("supplier contact not found, skipping group",
				zap.String("supplier_id", group.supplierID))
			continue
		}

		var linked []LinkedProduct
		var desired []reconcile.DesiredItem
		for _, link := range group.products {
			product, ok := reconcile.FindProduct(link.ProductAccessID, products)
			if !ok {
				s.log.Warn("linked product not found, skipping",
					zap.String("product_id", link.ProductAccessID),
					zap.String("supplier_id", group.supplierID))
				continue
			}
			measure := product.Measure
			if measure == 0 {
				measure = reconcile.DefaultLineMeasureCode
			}
			item := LinkedProduct{
				ProductID:        product.ID,
				CatalogProductID: bridge[product.ID],
				AccessID:         link.ProductAccessID,
				Name:             link.ProductName,
				Quantity:         decimal.NewFromInt(1),
				Price:            product.Price,
				MeasureCode:      measure,
			}
			linked = append(linked, item)
			desired = append(desired, reconcile.DesiredItem{
				CatalogProductID: item.CatalogProductID,
				ProductID:        item.ProductID,
				Name:             item.Name,
				Quantity:         item.Quantity,
				Price:            item.Price,
				MeasureCode:      item.MeasureCode,
			})
		}
		if len(linked) == 0 {
			s.log.Warn("no valid products for supplier, skipping group",
				zap.String("supplier_id", group.supplierID))
			continue
		}

		if err := s.syncProductIDSet(ctx, remote, group, contact, currentSets, linked); err != nil {
			return nil, err
		}

		recordID, err := s.syncRelationshipRecord(ctx, remote, group, contact, records, desired)
		if err != nil {
			return nil, err
		}

		results = append(results, LinkGroup{
			SupplierAccessID: group.supplierID,
			SupplierName:     group.supplierName,
			ContactID:        contact.ID,
			RecordID:         recordID,
			Products:         linked,
		})
	}

	s.log.Info("synced supplier-product links",
		zap.Int("rows", len(links)), zap.Int("suppliers", len(results)))
	return results, nil
}

// syncProductIDSet grows the contact's product-id set with the linked
// products. The field is rewritten whole, but only when something is
// actually missing from it.
func (s *SupplierProductService) syncProductIDSet(ctx context.Context, remote *Remote, group linkGroupInput, contact reconcile.RemoteContact, sets map[int64]reconcile.ProductIDSet, linked []LinkedProduct) error {
	desired := make([]int64, 0, len(linked))
	for _, p := range linked {
		desired = append(desired, p.ProductID)
	}

	current, ok := sets[contact.ID]
	if !ok {
		current = reconcile.NewProductIDSet()
	}
	missing := current.Missing(desired)
	if len(missing) == 0 {
		return nil
	}

	rec := reconcile.SupplierRecord{AccessID: group.supplierID, Name: group.supplierName}
	if err := remote.Contacts.Update(ctx, contact.ID, rec, current.Union(missing)); err != nil {
		return fmt.Errorf("grow product set for contact %d: %w", contact.ID, err)
	}
	s.log.Info("linked products to contact",
		zap.Int64("contact_id", contact.ID), zap.Int("added", len(missing)))
	return nil
}

// syncRelationshipRecord ensures the supplier's relationship record
// exists and diffs its line items against the desired list.
func (s *SupplierProductService) syncRelationshipRecord(ctx context.Context, remote *Remote, group linkGroupInput, contact reconcile.RemoteContact, records []reconcile.RelationshipRecord, desired []reconcile.DesiredItem) (int64, error) {
	var existing *reconcile.RelationshipRecord
	for i := range records {
		if records[i].ContactID == contact.ID {
			existing = &records[i]
			break
		}
	}

	if existing == nil {
		title := fmt.Sprintf("Поставщик: %s", group.supplierName)
		id, err := remote.Items.Add(ctx, title, contact.ID)
		if err != nil {
			return 0, err
		}
		if err := remote.Items.AddLineItems(ctx, id, desired); err != nil {
			return 0, err
		}
		return id, nil
	}

	delta := reconcile.DiffLineItems(existing.LineItems, desired)
	if delta.Empty() {
		return existing.ID, nil
	}
	remote.Items.RemoveLineItems(ctx, delta.ToRemove)
	if err := remote.Items.AddLineItems(ctx, existing.ID, delta.ToAdd); err != nil {
		return 0, err
	}
	return existing.ID, nil
}
