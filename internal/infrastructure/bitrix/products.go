package bitrix

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// Products fetches and writes product entities in the remote store.
type Products struct {
	client *Client
	log    *zap.Logger
}

// NewProducts creates a product service over the gateway client.
func NewProducts(client *Client, log *zap.Logger) *Products {
	return &Products{client: client, log: log.Named("bitrix.products")}
}

// FetchByAccessIDs returns the products whose access-id custom field
// matches any of the given external identifiers. Ids should be
// deduplicated by the caller; repeats are wasteful but not incorrect.
// An empty id set short-circuits without a network call.
func (p *Products) FetchByAccessIDs(ctx context.Context, accessIDs []string) ([]reconcile.RemoteProduct, error) {
	if len(accessIDs) == 0 {
		return nil, nil
	}

	key := p.client.cfg.Fields.ProductAccessID
	set := NewCommandSet()
	for i, accessID := range accessIDs {
		cmd := NewCommand("crm.product.list").
			Select("ID", "NAME", "PRICE", "MEASURE", key).
			Filter(key, accessID)
		set.Add(fmt.Sprintf("product_%d", i), cmd)
	}

	results, err := p.client.Batch(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("fetch products by access ids: %w", err)
	}

	products := make([]reconcile.RemoteProduct, 0, len(results))
	for _, raw := range results {
		fields, ok := decodeEntity(raw)
		if !ok {
			continue
		}
		products = append(products, reconcile.RemoteProduct{
			ID:       fields.id("ID"),
			Name:     fields.str("NAME"),
			Price:    fields.dec("PRICE"),
			Measure:  fields.intval("MEASURE"),
			AccessID: fields.str(key),
		})
	}

	p.log.Info("fetched products", zap.Int("requested", len(accessIDs)), zap.Int("found", len(products)))
	return products, nil
}

// FetchBySection pages through every product filed in the configured
// section. Used by the data endpoints to link legacy rows by name.
func (p *Products) FetchBySection(ctx context.Context) ([]reconcile.RemoteProduct, error) {
	key := p.client.cfg.Fields.ProductAccessID
	var all []reconcile.RemoteProduct

	for start := 0; ; start += BatchLimit {
		cmd := NewCommand("crm.product.list").
			Select("ID", "NAME", "PRICE", "MEASURE", key).
			Filter("SECTION_ID", strconv.FormatInt(p.client.cfg.ProductSectionID, 10)).
			SetInt("start", int64(start))

		results, err := p.client.Batch(ctx, NewCommandSet().Add("products", cmd))
		if err != nil {
			return nil, fmt.Errorf("fetch section products page at %d: %w", start, err)
		}

		for _, raw := range results {
			fields, ok := decodeEntity(raw)
			if !ok {
				continue
			}
			all = append(all, reconcile.RemoteProduct{
				ID:       fields.id("ID"),
				Name:     fields.str("NAME"),
				Price:    fields.dec("PRICE"),
				Measure:  fields.intval("MEASURE"),
				AccessID: fields.str(key),
			})
		}
		if len(results) < BatchLimit {
			break
		}
	}

	p.log.Info("fetched section products", zap.Int("count", len(all)))
	return all, nil
}

// FetchCatalogByProductIDs returns the catalog products bridged to the
// given product ids via parentId. Products without a catalog entry are
// simply absent from the result.
func (p *Products) FetchCatalogByProductIDs(ctx context.Context, productIDs []int64) ([]reconcile.CatalogProduct, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	set := NewCommandSet()
	for i, id := range productIDs {
		cmd := NewCommand("catalog.product.list").
			Select("id", "parentId").
			Filter("iblockId", strconv.FormatInt(p.client.cfg.CatalogIBlockID, 10)).
			Filter("parentId", strconv.FormatInt(id, 10))
		set.Add(fmt.Sprintf("catalog_product_%d", i), cmd)
	}

	results, err := p.client.Batch(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog products: %w", err)
	}

	catalog := make([]reconcile.CatalogProduct, 0, len(results))
	for _, raw := range results {
		fields, ok := decodeEntity(raw)
		if !ok {
			continue
		}
		entry := reconcile.CatalogProduct{
			ID:       fields.id("id"),
			ParentID: fields.id("parentId"),
		}
		if entry.ID != 0 {
			catalog = append(catalog, entry)
		}
	}
	return catalog, nil
}

// EnsureCatalog resolves catalog products for every given product id,
// creating the missing ones. Returns product id → catalog product id.
// Line items reference catalog products, so this bridging must happen
// before any line item is written.
func (p *Products) EnsureCatalog(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	bridged := make(map[int64]int64, len(productIDs))

	existing, err := p.FetchCatalogByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, entry := range existing {
		bridged[entry.ParentID] = entry.ID
	}

	for _, id := range productIDs {
		if _, ok := bridged[id]; ok {
			continue
		}
		set := NewCommandSet()
		cmd := NewCommand("catalog.product.add").
			Field("iblockId", strconv.FormatInt(p.client.cfg.CatalogIBlockID, 10)).
			Field("parentId", strconv.FormatInt(id, 10))
		set.Add("add_catalog_product", cmd)

		results, err := p.client.Batch(ctx, set)
		if err != nil {
			return nil, fmt.Errorf("create catalog product for %d: %w", id, err)
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("create catalog product for %d: empty response", id)
		}
		fields, ok := decodeEntity(results[0])
		if ok && fields.id("id") != 0 {
			bridged[id] = fields.id("id")
		} else {
			bridged[id] = scalarID(results[0])
		}
		p.log.Info("created catalog product", zap.Int64("product_id", id), zap.Int64("catalog_id", bridged[id]))
	}

	return bridged, nil
}

// Add creates a product and returns its remote id.
func (p *Products) Add(ctx context.Context, rec reconcile.ProductRecord, measure int) (int64, error) {
	cmd := NewCommand("crm.product.add").
		Field("NAME", rec.Name).
		Field("PRICE", rec.Price.String()).
		Field("MEASURE", strconv.Itoa(measure)).
		Field(p.client.cfg.Fields.ProductAccessID, rec.AccessID).
		Field("SECTION_ID", strconv.FormatInt(p.client.cfg.ProductSectionID, 10))

	results, err := p.client.Batch(ctx, NewCommandSet().Add("add_product", cmd))
	if err != nil {
		return 0, fmt.Errorf("add product %q: %w", rec.Name, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("add product %q: empty response", rec.Name)
	}

	id := scalarID(results[0])
	if id == 0 {
		return 0, fmt.Errorf("add product %q: no id in response", rec.Name)
	}
	p.log.Info("added product", zap.Int64("id", id), zap.String("access_id", rec.AccessID))
	return id, nil
}

// Update rewrites a product's tracked fields.
func (p *Products) Update(ctx context.Context, id int64, rec reconcile.ProductRecord, measure int) error {
	cmd := NewCommand("crm.product.update").
		SetInt("id", id).
		Field("NAME", rec.Name).
		Field("PRICE", rec.Price.String()).
		Field("MEASURE", strconv.Itoa(measure)).
		Field(p.client.cfg.Fields.ProductAccessID, rec.AccessID)

	_, err := p.client.Batch(ctx, NewCommandSet().Add("update_product", cmd))
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	p.log.Info("updated product", zap.Int64("id", id), zap.String("access_id", rec.AccessID))
	return nil
}
