package bitrix

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// Deals creates legacy deal records and replaces their product rows.
type Deals struct {
	client *Client
	log    *zap.Logger
}

// NewDeals creates a deal service over the gateway client.
func NewDeals(client *Client, log *zap.Logger) *Deals {
	return &Deals{client: client, log: log.Named("bitrix.deals")}
}

// DealInput carries the fields of a deal to create. DeliveryDate is
// already in ISO form (YYYY-MM-DD); the flag field is written as Y/N.
type DealInput struct {
	Title        string
	ContactID    int64
	PriceRequest bool
	DeliveryDate string
}

// Add creates a deal in the configured category and returns its id.
func (d *Deals) Add(ctx context.Context, in DealInput) (int64, error) {
	flag := "N"
	if in.PriceRequest {
		flag = "Y"
	}
	keys := d.client.cfg.Fields

	cmd := NewCommand("crm.deal.add").
		Field("TITLE", in.Title).
		Field("CONTACT_ID", strconv.FormatInt(in.ContactID, 10)).
		Field("CATEGORY_ID", strconv.FormatInt(d.client.cfg.DealCategoryID, 10)).
		Field("ASSIGNED_BY_ID", strconv.FormatInt(d.client.cfg.AssignedByID, 10)).
		Field(keys.PriceRequest, flag)
	if in.DeliveryDate != "" {
		cmd.Field(keys.DeliveryDate, in.DeliveryDate)
	}

	results, err := d.client.Batch(ctx, NewCommandSet().Add("add_deal", cmd))
	if err != nil {
		return 0, fmt.Errorf("add deal %q: %w", in.Title, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("add deal %q: empty response", in.Title)
	}

	id := scalarID(results[0])
	if id == 0 {
		return 0, fmt.Errorf("add deal %q: no id in response", in.Title)
	}
	d.log.Info("added deal", zap.Int64("id", id), zap.Int64("contact_id", in.ContactID))
	return id, nil
}

// SetProductRows replaces the full product-row list of a deal in a
// single call. Unlike the smart-process rows this is atomic: the remote
// store swaps the whole list or leaves it untouched.
func (d *Deals) SetProductRows(ctx context.Context, dealID int64, items []reconcile.DesiredItem) error {
	cmd := NewCommand("crm.deal.productrows.set").SetInt("id", dealID)
	for i, item := range items {
		prefix := fmt.Sprintf("rows[%d]", i)
		cmd.Set(prefix+"[PRODUCT_ID]", strconv.FormatInt(item.CatalogProductID, 10))
		cmd.Set(prefix+"[QUANTITY]", item.Quantity.String())
		cmd.Set(prefix+"[PRICE]", item.Price.String())
		cmd.Set(prefix+"[MEASURE_CODE]", strconv.Itoa(item.MeasureCode))
	}

	if _, err := d.client.Batch(ctx, NewCommandSet().Add("set_rows", cmd)); err != nil {
		return fmt.Errorf("set product rows on deal %d: %w", dealID, err)
	}
	d.log.Info("set deal product rows", zap.Int64("deal_id", dealID), zap.Int("count", len(items)))
	return nil
}
