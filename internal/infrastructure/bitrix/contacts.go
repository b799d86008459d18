package bitrix

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// Contacts fetches and writes supplier contact entities.
type Contacts struct {
	client *Client
	log    *zap.Logger
}

// NewContacts creates a contact service over the gateway client.
func NewContacts(client *Client, log *zap.Logger) *Contacts {
	return &Contacts{client: client, log: log.Named("bitrix.contacts")}
}

func (c *Contacts) decodeContact(fields entityFields) reconcile.RemoteContact {
	keys := c.client.cfg.Fields
	return reconcile.RemoteContact{
		ID:         fields.id("ID"),
		Name:       fields.str("NAME"),
		AccessID:   fields.str(keys.ContactAccessID),
		ProductIDs: reconcile.NewProductIDSet(fields.idList(keys.ContactProductIDs)...),
	}
}

// FetchByAccessIDs returns the contacts whose access-id custom field
// matches any of the given external identifiers. Empty input
// short-circuits without a network call.
func (c *Contacts) FetchByAccessIDs(ctx context.Context, accessIDs []string) ([]reconcile.RemoteContact, error) {
	if len(accessIDs) == 0 {
		return nil, nil
	}

	keys := c.client.cfg.Fields
	set := NewCommandSet()
	for i, accessID := range accessIDs {
		cmd := NewCommand("crm.contact.list").
			Select("ID", "NAME", keys.ContactProductIDs, keys.ContactAccessID).
			Filter(keys.ContactAccessID, accessID)
		set.Add(fmt.Sprintf("contact_%d", i), cmd)
	}

	results, err := c.client.Batch(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("fetch contacts by access ids: %w", err)
	}

	contacts := make([]reconcile.RemoteContact, 0, len(results))
	for _, raw := range results {
		if fields, ok := decodeEntity(raw); ok {
			contacts = append(contacts, c.decodeContact(fields))
		}
	}

	c.log.Info("fetched contacts", zap.Int("requested", len(accessIDs)), zap.Int("found", len(contacts)))
	return contacts, nil
}

// FetchProductIDs reads the product-id set field for each contact id.
// The full current set must be known before any rewrite, because the
// store only supports replacing the whole field.
func (c *Contacts) FetchProductIDs(ctx context.Context, contactIDs []int64) (map[int64]reconcile.ProductIDSet, error) {
	sets := make(map[int64]reconcile.ProductIDSet, len(contactIDs))
	if len(contactIDs) == 0 {
		return sets, nil
	}

	keys := c.client.cfg.Fields
	cmdSet := NewCommandSet()
	for _, id := range contactIDs {
		cmd := NewCommand("crm.contact.get").
			SetInt("id", id).
			Select(keys.ContactProductIDs)
		cmdSet.Add(fmt.Sprintf("contact_%d", id), cmd)
	}

	results, err := c.client.Batch(ctx, cmdSet)
	if err != nil {
		return nil, fmt.Errorf("fetch contact product ids: %w", err)
	}

	for _, raw := range results {
		fields, ok := decodeEntity(raw)
		if !ok {
			continue
		}
		id := fields.id("ID")
		if id == 0 {
			continue
		}
		sets[id] = reconcile.NewProductIDSet(fields.idList(keys.ContactProductIDs)...)
	}

	// Contacts missing from the response still get an empty set so
	// callers can union against them.
	for _, id := range contactIDs {
		if _, ok := sets[id]; !ok {
			c.log.Warn("contact not found", zap.Int64("contact_id", id))
			sets[id] = reconcile.NewProductIDSet()
		}
	}
	return sets, nil
}

// FetchSuppliers pages through every contact flagged as a supplier.
func (c *Contacts) FetchSuppliers(ctx context.Context) ([]reconcile.RemoteContact, error) {
	keys := c.client.cfg.Fields
	var all []reconcile.RemoteContact

	for start := 0; ; start += BatchLimit {
		cmd := NewCommand("crm.contact.list").
			Filter(keys.SupplierFlag, "1").
			Select("ID", "NAME", keys.ContactProductIDs, keys.ContactAccessID).
			SetInt("start", int64(start))

		results, err := c.client.Batch(ctx, NewCommandSet().Add("suppliers", cmd))
		if err != nil {
			return nil, fmt.Errorf("fetch suppliers page at %d: %w", start, err)
		}

		for _, raw := range results {
			if fields, ok := decodeEntity(raw); ok {
				all = append(all, c.decodeContact(fields))
			}
		}
		if len(results) < BatchLimit {
			break
		}
	}

	c.log.Info("fetched suppliers", zap.Int("count", len(all)))
	return all, nil
}

// Add creates a contact and returns its remote id.
func (c *Contacts) Add(ctx context.Context, rec reconcile.SupplierRecord) (int64, error) {
	cmd := NewCommand("crm.contact.add").
		Field("NAME", rec.Name).
		Field(c.client.cfg.Fields.ContactAccessID, rec.AccessID)

	results, err := c.client.Batch(ctx, NewCommandSet().Add("add_contact", cmd))
	if err != nil {
		return 0, fmt.Errorf("add contact %q: %w", rec.Name, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("add contact %q: empty response", rec.Name)
	}

	id := scalarID(results[0])
	if id == 0 {
		return 0, fmt.Errorf("add contact %q: no id in response", rec.Name)
	}
	c.log.Info("added contact", zap.Int64("id", id), zap.String("access_id", rec.AccessID))
	return id, nil
}

// Update rewrites a contact's name and access id. When productIDs is
// non-nil the whole set field is rewritten as well; the store has no
// append primitive, so the caller must pass the full desired set.
func (c *Contacts) Update(ctx context.Context, id int64, rec reconcile.SupplierRecord, productIDs reconcile.ProductIDSet) error {
	keys := c.client.cfg.Fields
	cmd := NewCommand("crm.contact.update").
		SetInt("id", id).
		Field("NAME", rec.Name).
		Field(keys.ContactAccessID, rec.AccessID)
	if productIDs != nil {
		cmd.FieldList(keys.ContactProductIDs, productIDs.Values())
	}

	_, err := c.client.Batch(ctx, NewCommandSet().Add("update_contact", cmd))
	if err != nil {
		return fmt.Errorf("update contact %d: %w", id, err)
	}
	c.log.Info("updated contact", zap.Int64("id", id), zap.Int("product_ids", productIDs.Len()))
	return nil
}
