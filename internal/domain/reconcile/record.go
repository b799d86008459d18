package reconcile

import (
	"errors"

	"github.com/shopspring/decimal"
)

// RecordKind identifies the source file type a record came from.
// Each kind carries its own required-field contract and update policy.
type RecordKind string

const (
	KindPurchase        RecordKind = "purchase"
	KindRaw             RecordKind = "raw"
	KindPackagingLabels RecordKind = "packaging_labels"
	KindSuppliers       RecordKind = "suppliers"
	KindSupplierProduct RecordKind = "supplier_product"
)

// ErrUnknownRecordKind is returned when a request names a kind this
// service does not handle.
var ErrUnknownRecordKind = errors.New("unknown record kind")

// ParseRecordKind validates a kind tag from an inbound request.
func ParseRecordKind(s string) (RecordKind, error) {
	switch RecordKind(s) {
	case KindPurchase, KindRaw, KindPackagingLabels, KindSuppliers, KindSupplierProduct:
		return RecordKind(s), nil
	}
	return "", ErrUnknownRecordKind
}

// ProductRecord is one source row describing a product. AccessID is the
// identifier from the legacy dataset and is the join key against the
// remote store.
type ProductRecord struct {
	AccessID string
	Name     string
	Price    decimal.Decimal
	Unit     string
	Quantity decimal.Decimal // amount to buy; only meaningful for purchase rows
}

// SupplierRecord is one source row describing a supplier.
type SupplierRecord struct {
	AccessID string
	Name     string
}

// SupplierProductLink is one source row asserting that a supplier
// carries a product.
type SupplierProductLink struct {
	SupplierAccessID string
	SupplierName     string
	ProductAccessID  string
	ProductName      string
}
