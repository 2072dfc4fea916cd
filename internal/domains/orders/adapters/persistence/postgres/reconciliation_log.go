package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.ReconciliationLog = (*ReconciliationLog)(nil)

// ReconciliationLog persists entries so operators can work them after a restart.
type ReconciliationLog struct {
	db *gorm.DB
}

func NewReconciliationLog(db *gorm.DB) *ReconciliationLog {
	return &ReconciliationLog{db: db}
}

type reconciliationRecord struct {
	ID          string         `gorm:"primaryKey;column:id;type:uuid"`
	OrderID     string         `gorm:"column:order_id;index"`
	Reason      string         `gorm:"column:reason;type:varchar(64)"`
	FailedSteps pq.StringArray `gorm:"column:failed_steps;type:text[]"`
	Detail      string         `gorm:"column:detail;type:text"`
	CreatedAt   time.Time      `gorm:"column:created_at;index"`
	ResolvedAt  *time.Time     `gorm:"column:resolved_at;index"`
}

func (reconciliationRecord) TableName() string { return "order_reconciliations" }

func (r *ReconciliationLog) Record(ctx context.Context, entry ports.ReconciliationEntry) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	record := reconciliationRecord{
		ID:          entry.ID,
		OrderID:     entry.OrderID,
		Reason:      entry.Reason,
		FailedSteps: pq.StringArray(entry.FailedSteps),
		Detail:      entry.Detail,
		CreatedAt:   entry.CreatedAt,
		ResolvedAt:  entry.ResolvedAt,
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *ReconciliationLog) ListOpen(ctx context.Context) ([]ports.ReconciliationEntry, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []reconciliationRecord
	if err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	entries := make([]ports.ReconciliationEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, ports.ReconciliationEntry{
			ID:          rec.ID,
			OrderID:     rec.OrderID,
			Reason:      rec.Reason,
			FailedSteps: []string(rec.FailedSteps),
			Detail:      rec.Detail,
			CreatedAt:   rec.CreatedAt.UTC(),
			ResolvedAt:  rec.ResolvedAt,
		})
	}
	return entries, nil
}

// Resolve marks an entry handled. Resolving twice is not an error.
func (r *ReconciliationLog) Resolve(ctx context.Context, id string) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&reconciliationRecord{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", gorm.Expr("NOW()"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&reconciliationRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ports.ErrReconciliationNotFound
	}
	return nil
}

func (r *ReconciliationLog) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres reconciliation log not configured")
	}
	return nil
}
