package syncapp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// SupplierResult is the outcome reported for one uploaded supplier row.
type SupplierResult struct {
	RemoteID int64  `json:"bitrix_id"`
	AccessID string `json:"supplier_id"`
	Name     string `json:"name"`
	Action   string `json:"action"`
}

// SupplierService reconciles supplier uploads against the remote
// contact list.
type SupplierService struct {
	source RemoteSource
	log    *zap.Logger
}

// NewSupplierService creates a supplier reconciliation service.
func NewSupplierService(source RemoteSource, log *zap.Logger) *SupplierService {
	return &SupplierService{source: source, log: log.Named("sync.suppliers")}
}

// Sync pushes the uploaded supplier rows to the remote store and
// returns one result per input row, in input order.
func (s *SupplierService) Sync(ctx context.Context, records []reconcile.SupplierRecord) ([]SupplierResult, error) {
	remote, err := s.source.Remote()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		key := reconcile.Fold(rec.AccessID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, rec.AccessID)
	}

	candidates, err := remote.Contacts.FetchByAccessIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]SupplierResult, 0, len(records))
	for _, rec := range records {
		action := reconcile.MatchContact(rec, candidates)
		remoteID := action.RemoteID

		switch action.Type {
		case reconcile.ActionCreate:
			id, err := remote.Contacts.Add(ctx, action.Fields)
			if err != nil {
				return nil, fmt.Errorf("create contact %q: %w", rec.Name, err)
			}
			remoteID = id
			candidates = append(candidates, reconcile.RemoteContact{
				ID:       id,
				Name:     rec.Name,
				AccessID: rec.AccessID,
			})

		case reconcile.ActionUpdate:
			if err := remote.Contacts.Update(ctx, action.RemoteID, action.Fields, nil); err != nil {
				return nil, fmt.Errorf("update contact %q: %w", rec.Name, err)
			}
			for i := range candidates {
				if candidates[i].ID == action.RemoteID {
					candidates[i].Name = rec.Name
					candidates[i].AccessID = rec.AccessID
				}
			}
		}

		results = append(results, SupplierResult{
			RemoteID: remoteID,
			AccessID: rec.AccessID,
			Name:     rec.Name,
			Action:   string(action.Type),
		})
	}

	s.log.Info("synced suppliers", zap.Int("records", len(records)))
	return results, nil
}
