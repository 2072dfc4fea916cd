package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the checkout schema. Adapters never automigrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&productRecord{},
		&orderRecord{},
		&orderLineRecord{},
		&reconciliationRecord{},
	)
}

// Product schema mirrors the stock ledger Postgres adapter. The check
// constraint backs up the conditional decrement.
type productRecord struct {
	ID             string    `gorm:"primaryKey;column:id"`
	Name           string    `gorm:"column:name"`
	Price          int64     `gorm:"column:price"`
	AvailableStock int64     `gorm:"column:available_stock;check:chk_products_available_stock,available_stock >= 0"`
	MaxPerUser     *int64    `gorm:"column:max_per_user"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// Order header schema mirrors the order store Postgres adapter.
type orderRecord struct {
	ID               string    `gorm:"primaryKey;column:id;type:uuid"`
	BuyerFullName    string    `gorm:"column:buyer_full_name"`
	BuyerCompanyName string    `gorm:"column:buyer_company_name"`
	BuyerEmail       string    `gorm:"column:buyer_email;index"`
	BuyerPhone       string    `gorm:"column:buyer_phone"`
	TotalAmount      int64     `gorm:"column:total_amount"`
	Status           string    `gorm:"column:status;type:varchar(32);index"`
	CreatedAt        time.Time `gorm:"column:created_at;index"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// Deleting a header cascades to its lines.
type orderLineRecord struct {
	ID        int64       `gorm:"primaryKey;column:id;autoIncrement"`
	OrderID   string      `gorm:"column:order_id;type:uuid;index:idx_order_lines_order_position,priority:1"`
	Order     orderRecord `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
	Position  int         `gorm:"column:position;index:idx_order_lines_order_position,priority:2"`
	ProductID string      `gorm:"column:product_id;index"`
	Quantity  int64       `gorm:"column:quantity"`
	UnitPrice int64       `gorm:"column:unit_price"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

// Reconciliation schema mirrors the reconciliation log adapter. Entries keep
// no foreign key so they outlive the order rows they describe.
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
