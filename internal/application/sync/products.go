package syncapp

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// ProductResult is the outcome reported for one uploaded product row.
type ProductResult struct {
	RemoteID int64           `json:"bitrix_id"`
	AccessID string          `json:"access_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"measure,omitempty"`
	Action   string          `json:"action"`
}

// ProductListService reconciles raw and packaging uploads against the
// remote product list.
type ProductListService struct {
	source RemoteSource
	log    *zap.Logger
}

// NewProductListService creates a product list reconciliation service.
func NewProductListService(source RemoteSource, log *zap.Logger) *ProductListService {
	return &ProductListService{source: source, log: log.Named("sync.products")}
}

// Sync pushes the uploaded product rows to the remote store and returns
// one result per input row, in input order.
func (s *ProductListService) Sync(ctx context.Context, kind reconcile.RecordKind, records []reconcile.ProductRecord) ([]ProductResult, error) {
	remote, err := s.source.Remote()
	if err != nil {
		return nil, err
	}

	synced, err := syncProducts(ctx, remote, kind, records)
	if err != nil {
		return nil, err
	}

	results := make([]ProductResult, 0, len(synced))
	for _, sp := range synced {
		results = append(results, ProductResult{
			RemoteID: sp.remote.ID,
			AccessID: sp.record.AccessID,
			Name:     sp.record.Name,
			Price:    sp.record.Price,
			Unit:     sp.record.Unit,
			Action:   string(sp.action),
		})
	}

	s.log.Info("synced product list",
		zap.String("kind", string(kind)), zap.Int("records", len(records)))
	return results, nil
}

// syncedProduct pairs a source row with the remote product it resolved
// to after reconciliation.
type syncedProduct struct {
	record reconcile.ProductRecord
	remote reconcile.RemoteProduct
	action reconcile.ActionType
}

// syncProducts reconciles product rows sequentially against a single
// upfront candidate fetch. Products created for earlier rows join the
// candidate set, so a duplicated access id later in the same file
// matches instead of creating twice.
func syncProducts(ctx context.Context, remote *Remote, kind reconcile.RecordKind, records []reconcile.ProductRecord) ([]syncedProduct, error) {
	candidates, err := remote.Products.FetchByAccessIDs(ctx, uniqueAccessIDs(records))
	if err != nil {
		return nil, err
	}

	policy := reconcile.PolicyForKind(kind)
	synced := make([]syncedProduct, 0, len(records))

	for _, rec := range records {
		action := reconcile.MatchProduct(rec, candidates, policy)
		resolved := reconcile.RemoteProduct{
			ID:       action.RemoteID,
			Name:     rec.Name,
			Price:    rec.Price,
			Measure:  action.Measure,
			AccessID: rec.AccessID,
		}

		switch action.Type {
		case reconcile.ActionCreate:
			id, err := remote.Products.Add(ctx, action.Fields, action.Measure)
			if err != nil {
				return nil, fmt.Errorf("create product %q: %w", rec.Name, err)
			}
			resolved.ID = id
			candidates = append(candidates, resolved)

		case reconcile.ActionUpdate:
			if err := remote.Products.Update(ctx, action.RemoteID, action.Fields, action.Measure); err != nil {
				return nil, fmt.Errorf("update product %q: %w", rec.Name, err)
			}
			replaceCandidate(candidates, resolved)

		default:
			if c, ok := reconcile.FindProduct(rec.AccessID, candidates); ok {
				resolved = c
			}
		}

		synced = append(synced, syncedProduct{record: rec, remote: resolved, action: action.Type})
	}
	return synced, nil
}

func replaceCandidate(candidates []reconcile.RemoteProduct, updated reconcile.RemoteProduct) {
	for i := range candidates {
		if candidates[i].ID == updated.ID {
			candidates[i] = updated
			return
		}
	}
}

// uniqueAccessIDs collects the distinct access ids of the given rows,
// preserving first-seen order.
func uniqueAccessIDs(records []reconcile.ProductRecord) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, rec := range records {
		key := reconcile.Fold(rec.AccessID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec.AccessID)
	}
	return out
}
