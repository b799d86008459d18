package bitrix

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// Items fetches and mutates smart-process relationship records and
// their line items.
type Items struct {
	client *Client
	log    *zap.Logger
}

// NewItems creates a relationship-record service over the gateway client.
func NewItems(client *Client, log *zap.Logger) *Items {
	return &Items{client: client, log: log.Named("bitrix.items")}
}

// ownerType is the product-row owner code for the configured
// smart-process type (hex-encoded entity type id).
func (it *Items) ownerType() string {
	return "T" + strconv.FormatInt(it.client.cfg.EntityTypeID, 16)
}

// FetchByContactIDs returns the relationship records owned by the given
// contacts, with line items attached. The list operation does not
// return line items inline, so each record found costs one additional
// call; this is the dominant source of request fan-out.
func (it *Items) FetchByContactIDs(ctx context.Context, contactIDs []int64) ([]reconcile.RelationshipRecord, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}

	entityType := strconv.FormatInt(it.client.cfg.EntityTypeID, 10)
	set := NewCommandSet()
	for i, id := range contactIDs {
		cmd := NewCommand("crm.item.list").
			Set("entityTypeId", entityType).
			Filter("contactId", strconv.FormatInt(id, 10)).
			Select("id", "title", "contactId")
		set.Add(fmt.Sprintf("items_%d", i), cmd)
	}

	results, err := it.client.Batch(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("fetch relationship records: %w", err)
	}

	records := make([]reconcile.RelationshipRecord, 0, len(results))
	for _, raw := range results {
		fields, ok := decodeEntity(raw)
		if !ok {
			continue
		}
		record := reconcile.RelationshipRecord{
			ID:        fields.id("id"),
			Title:     fields.str("title"),
			ContactID: fields.id("contactId"),
		}
		if record.ID == 0 {
			continue
		}
		records = append(records, record)
	}

	// Second round: one call per record for its line items.
	for i := range records {
		rows, err := it.fetchLineItems(ctx, records[i].ID)
		if err != nil {
			return nil, fmt.Errorf("fetch line items for record %d: %w", records[i].ID, err)
		}
		records[i].LineItems = rows
	}

	it.log.Info("fetched relationship records",
		zap.Int("contacts", len(contactIDs)), zap.Int("records", len(records)))
	return records, nil
}

func (it *Items) fetchLineItems(ctx context.Context, recordID int64) ([]reconcile.LineItem, error) {
	cmd := NewCommand("crm.item.productrow.list").
		Filter("=ownerId", strconv.FormatInt(recordID, 10)).
		Filter("=ownerType", it.ownerType())

	results, err := it.client.Batch(ctx, NewCommandSet().Add("rows", cmd))
	if err != nil {
		return nil, err
	}

	rows := make([]reconcile.LineItem, 0, len(results))
	for _, raw := range results {
		fields, ok := decodeEntity(raw)
		if !ok {
			continue
		}
		rows = append(rows, reconcile.LineItem{
			RowID:            fields.id("id"),
			CatalogProductID: fields.id("productId"),
			Quantity:         fields.dec("quantity"),
			Price:            fields.dec("price"),
			MeasureCode:      fields.intval("measureCode"),
		})
	}
	return rows, nil
}

// Add creates a relationship record for a contact and returns its id.
func (it *Items) Add(ctx context.Context, title string, contactID int64) (int64, error) {
	cmd := NewCommand("crm.item.add").
		SetInt("entityTypeId", it.client.cfg.EntityTypeID).
		Field("title", title).
		Field("contactId", strconv.FormatInt(contactID, 10)).
		Field("assignedById", strconv.FormatInt(it.client.cfg.AssignedByID, 10))

	results, err := it.client.Batch(ctx, NewCommandSet().Add("add_item", cmd))
	if err != nil {
		return 0, fmt.Errorf("add relationship record %q: %w", title, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("add relationship record %q: empty response", title)
	}

	fields, ok := decodeEntity(results[0])
	if !ok || fields.id("id") == 0 {
		return 0, fmt.Errorf("add relationship record %q: no id in response", title)
	}
	id := fields.id("id")
	it.log.Info("added relationship record", zap.Int64("id", id), zap.Int64("contact_id", contactID))
	return id, nil
}

// AddLineItems creates product rows on a record in chunks, pausing
// between chunks to stay polite to the remote store. The smart-process
// variant has no replace-all operation, so rows are created one command
// each inside chunked batches.
func (it *Items) AddLineItems(ctx context.Context, recordID int64, items []reconcile.DesiredItem) error {
	chunkSize := it.client.cfg.LineItemChunkSize

	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}

		set := NewCommandSet()
		for i, item := range items[start:end] {
			cmd := NewCommand("crm.item.productrow.add").
				Field("ownerId", strconv.FormatInt(recordID, 10)).
				Field("ownerType", it.ownerType()).
				Field("productId", strconv.FormatInt(item.CatalogProductID, 10)).
				Field("quantity", item.Quantity.String()).
				Field("price", item.Price.String()).
				Field("measureCode", strconv.Itoa(item.MeasureCode))
			set.Add(fmt.Sprintf("add_row_%d", start+i), cmd)
		}

		if _, err := it.client.Batch(ctx, set); err != nil {
			return fmt.Errorf("add line items to record %d: %w", recordID, err)
		}

		if end < len(items) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(it.client.cfg.LineItemPause):
			}
		}
	}

	it.log.Info("added line items", zap.Int64("record_id", recordID), zap.Int("count", len(items)))
	return nil
}

// RemoveLineItems deletes product rows one call at a time, best-effort:
// a failed delete is logged and skipped rather than aborting the rest.
func (it *Items) RemoveLineItems(ctx context.Context, rows []reconcile.LineItem) {
	for _, row := range rows {
		cmd := NewCommand("crm.item.productrow.delete").SetInt("id", row.RowID)
		if _, err := it.client.Batch(ctx, NewCommandSet().Add("delete_row", cmd)); err != nil {
			it.log.Warn("failed to delete line item",
				zap.Int64("row_id", row.RowID), zap.Error(err))
		}
	}
}
