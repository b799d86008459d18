package reconcile

import "github.com/shopspring/decimal"

// RemoteProduct mirrors a product entity in the remote store. AccessID is
// held in a custom field on the remote side; at most one product should
// exist per distinct access id, with this package's matcher responsible
// for not creating duplicates.
type RemoteProduct struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Measure  int
	AccessID string
}

// RemoteContact mirrors a supplier contact in the remote store.
// ProductIDs is the emulated set stored in a scalar multi-value field.
type RemoteContact struct {
	ID         int64
	Name       string
	AccessID   string
	ProductIDs ProductIDSet
}

// CatalogProduct is the secondary catalog representation of a product,
// keyed back to the product via ParentID. Line items reference catalog
// products, not products, so a bridging lookup is required before any
// line item can be written.
type CatalogProduct struct {
	ID       int64
	ParentID int64
}

// LineItem is one product row attached to a relationship record.
type LineItem struct {
	RowID            int64
	CatalogProductID int64
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	MeasureCode      int
}

// RelationshipRecord is a smart-process item tying a supplier contact to
// an ordered collection of line items.
type RelationshipRecord struct {
	ID        int64
	Title     string
	ContactID int64
	LineItems []LineItem
}
