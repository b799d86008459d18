package syncapp

import (
	"context"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
	"github.com/crmbridge/backend/internal/infrastructure/accessdb"
)

// LinkRow ties a legacy dataset row to its remote counterpart.
type LinkRow struct {
	AccessID string `json:"access_id"`
	RemoteID int64  `json:"bitrix_id"`
	Name     string `json:"name"`
}

// DataLinkService joins the legacy database export against the remote
// store by normalized name, for the read-only data endpoints. Rows
// without a remote counterpart are omitted.
type DataLinkService struct {
	store  *accessdb.Store
	source RemoteSource
	log    *zap.Logger
}

// NewDataLinkService creates a data link service over the legacy store.
func NewDataLinkService(store *accessdb.Store, source RemoteSource, log *zap.Logger) *DataLinkService {
	return &DataLinkService{store: store, source: source, log: log.Named("sync.datalink")}
}

// Products links legacy product rows to remote products by name.
func (s *DataLinkService) Products(ctx context.Context) ([]LinkRow, error) {
	remote, err := s.source.Remote()
	if err != nil {
		return nil, err
	}

	legacy, err := s.store.Products(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := remote.Products.FetchBySection(ctx)
	if err != nil {
		return nil, err
	}

	linked := make([]LinkRow, 0, len(legacy))
	for _, row := range legacy {
		for _, c := range candidates {
			if reconcile.EqualFolded(c.Name, row.Name) {
				linked = append(linked, LinkRow{AccessID: row.AccessID, RemoteID: c.ID, Name: c.Name})
				break
			}
		}
	}

	s.log.Info("linked legacy products",
		zap.Int("legacy", len(legacy)), zap.Int("linked", len(linked)))
	return linked, nil
}

// Suppliers links legacy supplier rows to remote supplier contacts by
// name.
func (s *DataLinkService) Suppliers(ctx context.Context) ([]LinkRow, error) {
	remote, err := s.source.Remote()
	if err != nil {
		return nil, err
	}

	legacy, err := s.store.Suppliers(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := remote.Contacts.FetchSuppliers(ctx)
	if err != nil {
		return nil, err
	}

	linked := make([]LinkRow, 0, len(legacy))
	for _, row := range legacy {
		for _, c := range candidates {
			if reconcile.EqualFolded(c.Name, row.Name) {
				linked = append(linked, LinkRow{AccessID: row.AccessID, RemoteID: c.ID, Name: c.Name})
				break
			}
		}
	}

	s.log.Info("linked legacy suppliers",
		zap.Int("legacy", len(legacy)), zap.Int("linked", len(linked)))
	return linked, nil
}
