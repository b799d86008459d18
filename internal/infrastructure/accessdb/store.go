package accessdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/crmbridge/backend/internal/domain/reconcile"
	"github.com/crmbridge/backend/internal/infrastructure/logger"
)

// Store reads the legacy dataset from its SQLite export. The table and
// column names are the original Access ones, kept verbatim so the
// nightly export can be dropped in without a transform step.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

type productModel struct {
	ID    int64   `gorm:"column:ZutatenLagerID;primaryKey"`
	Name  string  `gorm:"column:ZutatenLager"`
	Price float64 `gorm:"column:ZutatenLager_Tagespreis"`
	Unit  string  `gorm:"column:EinheitID"`
}

func (productModel) TableName() string { return "abfZutatenLager" }

type supplierModel struct {
	ID   int64  `gorm:"column:LieferantID;primaryKey"`
	Name string `gorm:"column:Firma"`
}

func (supplierModel) TableName() string { return "tblLieferant" }

// Open opens the legacy database file.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 logger.NewGormLogger(log, gormlogger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open legacy database %s: %w", path, err)
	}
	return NewStore(db, log), nil
}

// NewStore wraps an existing connection, mainly for tests.
func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log.Named("accessdb")}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Products returns every row of the legacy product view.
func (s *Store) Products(ctx context.Context) ([]reconcile.ProductRecord, error) {
	var models []productModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("read legacy products: %w", err)
	}

	records := make([]reconcile.ProductRecord, 0, len(models))
	for _, m := range models {
		records = append(records, reconcile.ProductRecord{
			AccessID: strconv.FormatInt(m.ID, 10),
			Name:     m.Name,
			Price:    decimal.NewFromFloat(m.Price),
			Unit:     m.Unit,
		})
	}
	s.log.Debug("read legacy products", zap.Int("count", len(records)))
	return records, nil
}

// Suppliers returns every row of the legacy supplier table.
func (s *Store) Suppliers(ctx context.Context) ([]reconcile.SupplierRecord, error) {
	var models []supplierModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("read legacy suppliers: %w", err)
	}

	records := make([]reconcile.SupplierRecord, 0, len(models))
	for _, m := range models {
		records = append(records, reconcile.SupplierRecord{
			AccessID: strconv.FormatInt(m.ID, 10),
			Name:     m.Name,
		})
	}
	s.log.Debug("read legacy suppliers", zap.Int("count", len(records)))
	return records, nil
}
