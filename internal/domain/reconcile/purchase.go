package reconcile

import "github.com/shopspring/decimal"

// SupplierRef identifies a supplier contact attached to a purchase row.
type SupplierRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PurchaseRow is one reconciled purchase-list entry returned to the
// caller: the product's remote id plus the suppliers known to carry it.
type PurchaseRow struct {
	RemoteID  int64           `json:"remote_id"`
	AccessID  string          `json:"access_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Suppliers []SupplierRef   `json:"suppliers"`
}

// MergePurchaseRows collapses duplicate purchase rows (same access id)
// into one, summing quantities and unioning supplier lists. First
// occurrence order is preserved.
func MergePurchaseRows(rows []PurchaseRow) []PurchaseRow {
	index := make(map[string]int, len(rows))
	out := make([]PurchaseRow, 0, len(rows))

	for _, row := range rows {
		key := Fold(row.AccessID)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, row)
			continue
		}
		out[i].Quantity = out[i].Quantity.Add(row.Quantity)
		for _, s := range row.Suppliers {
			if !containsSupplier(out[i].Suppliers, s.ID) {
				out[i].Suppliers = append(out[i].Suppliers, s)
			}
		}
	}
	return out
}

func containsSupplier(refs []SupplierRef, id int64) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}

// SuppliersCarrying returns the contacts whose product-id set contains
// the given product id.
func SuppliersCarrying(productID int64, contacts []RemoteContact) []SupplierRef {
	var out []SupplierRef
	for _, c := range contacts {
		if c.ProductIDs.Contains(productID) {
			out = append(out, SupplierRef{ID: c.ID, Name: c.Name})
		}
	}
	return out
}
