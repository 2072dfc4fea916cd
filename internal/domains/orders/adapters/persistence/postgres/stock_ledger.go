package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.StockLedger = (*StockLedger)(nil)

// StockLedger adjusts products.available_stock with single-statement updates.
type StockLedger struct {
	db *gorm.DB
}

func NewStockLedger(db *gorm.DB) *StockLedger {
	return &StockLedger{db: db}
}

// productRecord is the catalog row; only the stock column is written here.
type productRecord struct {
	ID             string    `gorm:"primaryKey;column:id"`
	Name           string    `gorm:"column:name"`
	Price          int64     `gorm:"column:price"`
	AvailableStock int64     `gorm:"column:available_stock;check:chk_products_available_stock,available_stock >= 0"`
	MaxPerUser     *int64    `gorm:"column:max_per_user"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// TryDecrement relies on the WHERE predicate for atomicity: the row is only
// touched when enough stock remains.
func (l *StockLedger) TryDecrement(ctx context.Context, productID string, qty int64) (bool, error) {
	if err := l.ensureDB(); err != nil {
		return false, err
	}
	result := l.db.WithContext(ctx).Model(&productRecord{}).
		Where("id = ? AND available_stock >= ?", productID, qty).
		Updates(map[string]any{
			"available_stock": gorm.Expr("available_stock - ?", qty),
			"updated_at":      gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}
	// Only used to tell a missing product from an insufficient one.
	exists, err := l.exists(ctx, productID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ports.ErrProductNotFound
	}
	return false, nil
}

func (l *StockLedger) CompensateIncrement(ctx context.Context, productID string, qty int64) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	result := l.db.WithContext(ctx).Model(&productRecord{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"available_stock": gorm.Expr("available_stock + ?", qty),
			"updated_at":      gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrProductNotFound
	}
	return nil
}

func (l *StockLedger) Available(ctx context.Context, productID string) (int64, error) {
	if err := l.ensureDB(); err != nil {
		return 0, err
	}
	var record productRecord
	err := l.db.WithContext(ctx).Select("id", "available_stock").First(&record, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ports.ErrProductNotFound
		}
		return 0, err
	}
	return record.AvailableStock, nil
}

// Put seeds or overwrites a product's stock. The catalog normally owns these
// rows; this exists for fixtures and local runs.
func (l *StockLedger) Put(ctx context.Context, productID string, available int64) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	record := productRecord{ID: productID, AvailableStock: available, UpdatedAt: time.Now().UTC()}
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"available_stock": available,
				"updated_at":      gorm.Expr("NOW()"),
			}),
		}).Create(&record).Error
}

func (l *StockLedger) exists(ctx context.Context, productID string) (bool, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&productRecord{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (l *StockLedger) ensureDB() error {
	if l == nil || l.db == nil {
		return errors.New("postgres stock ledger not configured")
	}
	return nil
}
