package syncapp

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/infrastructure/bitrix"
	"github.com/crmbridge/backend/internal/infrastructure/config"
)

// Remote bundles the gateway services for one portal connection.
type Remote struct {
	Products *bitrix.Products
	Contacts *bitrix.Contacts
	Items    *bitrix.Items
	Deals    *bitrix.Deals
}

// NewRemote builds the service bundle over an established client.
func NewRemote(client *bitrix.Client, log *zap.Logger) *Remote {
	return &Remote{
		Products: bitrix.NewProducts(client, log),
		Contacts: bitrix.NewContacts(client, log),
		Items:    bitrix.NewItems(client, log),
		Deals:    bitrix.NewDeals(client, log),
	}
}

// RemoteSource yields the current remote service bundle. The concrete
// implementation decrypts the stored webhook on demand; tests supply a
// bundle wired to a local server directly.
type RemoteSource interface {
	Remote() (*Remote, error)
}

// Connector builds and caches the remote bundle from the credential
// store. The cached bundle is invalidated whenever the stored webhook
// ciphertext changes, which happens on credential rotation.
type Connector struct {
	cfg   config.RemoteConfig
	creds *CredentialStore
	log   *zap.Logger

	mu     sync.Mutex
	cached *Remote
	built  string
}

// NewConnector creates a connector over the credential store.
func NewConnector(cfg config.RemoteConfig, creds *CredentialStore, log *zap.Logger) *Connector {
	return &Connector{cfg: cfg, creds: creds, log: log}
}

// Remote returns the service bundle for the currently stored
// credentials, building it on first use.
func (c *Connector) Remote() (*Remote, error) {
	_, _, webhook := c.creds.Snapshot()
	if webhook == "" {
		return nil, ErrNotInitialized
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.built == webhook {
		return c.cached, nil
	}

	cipher, err := c.creds.Cipher()
	if err != nil {
		return nil, fmt.Errorf("build credential cipher: %w", err)
	}
	endpoint, err := cipher.Decrypt(webhook)
	if err != nil {
		return nil, fmt.Errorf("decrypt webhook: %w", err)
	}

	client := bitrix.NewClient(bitrix.Config{
		Endpoint: endpoint,
		Timeout:  c.cfg.Timeout,
		Fields: bitrix.FieldKeys{
			ProductAccessID:   c.cfg.Fields.ProductAccessID,
			ContactAccessID:   c.cfg.Fields.ContactAccessID,
			ContactProductIDs: c.cfg.Fields.ContactProductIDs,
			SupplierFlag:      c.cfg.Fields.SupplierFlag,
			PriceRequest:      c.cfg.Fields.PriceRequest,
			DeliveryDate:      c.cfg.Fields.DeliveryDate,
		},
		EntityTypeID:      c.cfg.EntityTypeID,
		DealCategoryID:    c.cfg.DealCategoryID,
		ProductSectionID:  c.cfg.ProductSectionID,
		CatalogIBlockID:   c.cfg.CatalogIBlockID,
		AssignedByID:      c.cfg.AssignedByID,
		LineItemChunkSize: c.cfg.LineItemChunkSize,
		LineItemPause:     c.cfg.LineItemPause,
	}, c.log)

	c.cached = NewRemote(client, c.log)
	c.built = webhook
	return c.cached, nil
}
