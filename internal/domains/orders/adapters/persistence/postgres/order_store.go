package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore persists order headers and lines in PostgreSQL using GORM. Each
// method is its own statement; nothing here opens a transaction.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore wires a PostgreSQL-backed store. Caller manages DB lifecycle
// and runs migrations.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// orderRecord maps the order header to a relational table.
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

// orderLineRecord rows are removed with their header by an ON DELETE CASCADE key.
type orderLineRecord struct {
	ID        int64  `gorm:"primaryKey;column:id;autoIncrement"`
	OrderID   string `gorm:"column:order_id;type:uuid;index:idx_order_lines_order_position,priority:1"`
	Position  int    `gorm:"column:position;index:idx_order_lines_order_position,priority:2"`
	ProductID string `gorm:"column:product_id;index"`
	Quantity  int64  `gorm:"column:quantity"`
	UnitPrice int64  `gorm:"column:unit_price"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

func (s *OrderStore) CreateHeader(ctx context.Context, order *domain.Order) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	record := toOrderRecord(order)
	return s.db.WithContext(ctx).Create(&record).Error
}

// InsertLines writes every line in one multi-row INSERT.
func (s *OrderStore) InsertLines(ctx context.Context, orderID string, lines []domain.Line) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	records := make([]orderLineRecord, 0, len(lines))
	for i, l := range lines {
		records = append(records, orderLineRecord{
			OrderID:   orderID,
			Position:  i,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

func (s *OrderStore) DeleteHeader(ctx context.Context, orderID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Where("id = ?", orderID).Delete(&orderRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *OrderStore) DeleteLines(ctx context.Context, orderID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&orderLineRecord{}).Error
}

func (s *OrderStore) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	orders := []*domain.Order{record.toDomain()}
	if err := s.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (s *OrderStore) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&orderRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Email != "" {
		query = query.Where("LOWER(buyer_email) = LOWER(?)", filter.Email)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var records []orderRecord
	if err := query.Order("created_at DESC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	if err := s.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// TransitionStatus is a single conditional UPDATE; the status predicate makes
// concurrent transitions race safely.
func (s *OrderStore) TransitionStatus(ctx context.Context, orderID string, from, to domain.Status) (bool, error) {
	if err := s.ensureDB(); err != nil {
		return false, err
	}
	result := s.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ? AND status = ?", orderID, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ports.ErrNotFound
	}
	return false, nil
}

// attachLines loads lines for all orders in one query.
func (s *OrderStore) attachLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	byID := make(map[string]*domain.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}
	var records []orderLineRecord
	if err := s.db.WithContext(ctx).
		Where("order_id IN ?", ids).
		Order("order_id").Order("position").
		Find(&records).Error; err != nil {
		return err
	}
	for _, r := range records {
		order := byID[r.OrderID]
		order.Lines = append(order.Lines, r.toDomain())
	}
	return nil
}

func (s *OrderStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres order store not configured")
	}
	return nil
}

func toOrderRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:               order.ID,
		BuyerFullName:    order.Buyer.FullName,
		BuyerCompanyName: order.Buyer.CompanyName,
		BuyerEmail:       order.Buyer.Email,
		BuyerPhone:       order.Buyer.Phone,
		TotalAmount:      order.TotalAmount,
		Status:           string(order.Status),
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func (r orderRecord) toDomain() *domain.Order {
	return &domain.Order{
		ID: r.ID,
		Buyer: domain.BuyerInfo{
			FullName:    r.BuyerFullName,
			CompanyName: r.BuyerCompanyName,
			Email:       r.BuyerEmail,
			Phone:       r.BuyerPhone,
		},
		TotalAmount: r.TotalAmount,
		Status:      domain.Status(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r orderLineRecord) toDomain() domain.Line {
	return domain.Line{
		OrderID:   r.OrderID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
	}
}
