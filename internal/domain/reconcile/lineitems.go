package reconcile

import "github.com/shopspring/decimal"

// DesiredItem is a line item the source data wants attached to a
// relationship record, expressed in catalog-product terms.
type DesiredItem struct {
	CatalogProductID int64
	ProductID        int64
	Name             string
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	MeasureCode      int
}

// LineItemDelta is the result of diffing a record's current line items
// against the desired list. Items present on both sides are untouched:
// there is no update-in-place path for quantity or price changes on an
// already-linked item.
type LineItemDelta struct {
	ToAdd    []DesiredItem
	ToRemove []LineItem
}

// Empty reports whether the delta requires no remote calls.
func (d LineItemDelta) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// DiffLineItems computes the add/remove delta between a record's current
// line items and the desired item list, keying both sides by catalog
// product id. Running the diff again on the post-state with the same
// desired list yields an empty delta.
func DiffLineItems(current []LineItem, desired []DesiredItem) LineItemDelta {
	wanted := make(map[int64]struct{}, len(desired))
	for _, d := range desired {
		wanted[d.CatalogProductID] = struct{}{}
	}
	have := make(map[int64]struct{}, len(current))
	for _, c := range current {
		have[c.CatalogProductID] = struct{}{}
	}

	var delta LineItemDelta
	for _, c := range current {
		if _, ok := wanted[c.CatalogProductID]; !ok {
			delta.ToRemove = append(delta.ToRemove, c)
		}
	}
	seen := make(map[int64]struct{}, len(desired))
	for _, d := range desired {
		if _, dup := seen[d.CatalogProductID]; dup {
			continue
		}
		seen[d.CatalogProductID] = struct{}{}
		if _, ok := have[d.CatalogProductID]; !ok {
			delta.ToAdd = append(delta.ToAdd, d)
		}
	}
	return delta
}
