package recordsource

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/domain/reconcile"
)

// Columns names the legacy dataset's column headers. The defaults match
// the original Access export; deployments with renamed columns override
// them in configuration.
type Columns struct {
	ProductID    string
	ProductName  string
	Quantity     string
	Price        string
	Unit         string
	SupplierID   string
	SupplierName string
}

// DefaultColumns returns the column names of the stock legacy export.
func DefaultColumns() Columns {
	return Columns{
		ProductID:    "ZutatenLagerID",
		ProductName:  "ZutatenLager",
		Quantity:     "ZutLagBestellen",
		Price:        "ZutatenLager_Tagespreis",
		Unit:         "EinheitID",
		SupplierID:   "LieferantID",
		SupplierName: "Firma",
	}
}

func (c *Columns) withDefaults() {
	d := DefaultColumns()
	if c.ProductID == "" {
		c.ProductID = d.ProductID
	}
	if c.ProductName == "" {
		c.ProductName = d.ProductName
	}
	if c.Quantity == "" {
		c.Quantity = d.Quantity
	}
	if c.Price == "" {
		c.Price = d.Price
	}
	if c.Unit == "" {
		c.Unit = d.Unit
	}
	if c.SupplierID == "" {
		c.SupplierID = d.SupplierID
	}
	if c.SupplierName == "" {
		c.SupplierName = d.SupplierName
	}
}

// File is the typed result of parsing one upload. Exactly one of the
// slices is populated, depending on the record kind.
type File struct {
	Kind      reconcile.RecordKind
	Products  []reconcile.ProductRecord
	Suppliers []reconcile.SupplierRecord
	Links     []reconcile.SupplierProductLink
}

// Source parses uploaded record files into domain records.
type Source struct {
	columns Columns
	log     *zap.Logger
}

// NewSource creates a record source with the given column mapping.
func NewSource(columns Columns, log *zap.Logger) *Source {
	columns.withDefaults()
	return &Source{columns: columns, log: log.Named("recordsource")}
}

// required returns the column contract for a record kind. A row missing
// any of these is dropped rather than failing the whole file.
func (s *Source) required(kind reconcile.RecordKind) []string {
	c := s.columns
	switch kind {
	case reconcile.KindRaw, reconcile.KindPackagingLabels:
		return []string{c.ProductID, c.ProductName}
	case reconcile.KindSuppliers:
		return []string{c.SupplierID, c.SupplierName}
	case reconcile.KindSupplierProduct:
		return []string{c.SupplierID, c.SupplierName, c.ProductID, c.ProductName}
	default:
		return []string{c.ProductID, c.ProductName, c.Quantity}
	}
}

// Parse reads an uploaded file of the given kind into typed records.
// Rows with any required field empty are filtered out; a file with no
// surviving rows is an error.
func (s *Source) Parse(kind reconcile.RecordKind, data []byte) (*File, error) {
	required := s.required(kind)
	rows, err := parseRows(data, required)
	if err != nil {
		return nil, fmt.Errorf("parse %s file: %w", kind, err)
	}

	total := len(rows)
	file := &File{Kind: kind}
	for _, r := range rows {
		if !r.has(required...) {
			continue
		}
		switch kind {
		case reconcile.KindSuppliers:
			file.Suppliers = append(file.Suppliers, s.supplierRecord(r))
		case reconcile.KindSupplierProduct:
			file.Links = append(file.Links, reconcile.SupplierProductLink{
				SupplierAccessID: r.get(s.columns.SupplierID),
				SupplierName:     r.get(s.columns.SupplierName),
				ProductAccessID:  r.get(s.columns.ProductID),
				ProductName:      r.get(s.columns.ProductName),
			})
		default:
			file.Products = append(file.Products, s.productRecord(r))
		}
	}

	valid := len(file.Products) + len(file.Suppliers) + len(file.Links)
	s.log.Info("parsed record file",
		zap.String("kind", string(kind)), zap.Int("rows", total), zap.Int("valid", valid))
	if valid == 0 {
		return nil, fmt.Errorf("parse %s file: %w", kind, ErrNoDataRows)
	}
	return file, nil
}

func (s *Source) productRecord(r row) reconcile.ProductRecord {
	return reconcile.ProductRecord{
		AccessID: r.get(s.columns.ProductID),
		Name:     r.get(s.columns.ProductName),
		Price:    reconcile.ParsePrice(r.get(s.columns.Price)),
		Unit:     r.get(s.columns.Unit),
		Quantity: reconcile.ParsePrice(r.get(s.columns.Quantity)),
	}
}

func (s *Source) supplierRecord(r row) reconcile.SupplierRecord {
	return reconcile.SupplierRecord{
		AccessID: r.get(s.columns.SupplierID),
		Name:     r.get(s.columns.SupplierName),
	}
}
