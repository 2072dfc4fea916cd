package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

var ErrDuplicateOrder = errors.New("order already exists")

// OrderStore is an in-memory order persistence adapter. Deleting a header
// cascades to its lines, like the relational schema.
type OrderStore struct {
	mu      sync.RWMutex
	headers map[string]*domain.Order
	lines   map[string][]domain.Line
	now     func() time.Time
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		headers: map[string]*domain.Order{},
		lines:   map[string][]domain.Line{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *OrderStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *OrderStore) CreateHeader(_ context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headers[order.ID]; ok {
		return ErrDuplicateOrder
	}
	s.headers[order.ID] = order.Header()
	return nil
}

func (s *OrderStore) InsertLines(_ context.Context, orderID string, lines []domain.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headers[orderID]; !ok {
		return ports.ErrNotFound
	}
	stored := make([]domain.Line, 0, len(lines))
	for _, l := range lines {
		l.OrderID = orderID
		stored = append(stored, l)
	}
	s.lines[orderID] = append(s.lines[orderID], stored...)
	return nil
}

func (s *OrderStore) DeleteHeader(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headers[orderID]; !ok {
		return ports.ErrNotFound
	}
	delete(s.headers, orderID)
	delete(s.lines, orderID)
	return nil
}

func (s *OrderStore) DeleteLines(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, orderID)
	return nil
}

func (s *OrderStore) GetByID(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assemble(orderID)
}

func (s *OrderStore) List(_ context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Order, 0, len(s.headers))
	for id, header := range s.headers {
		if filter.Status != "" && header.Status != filter.Status {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(header.Buyer.Email, filter.Email) {
			continue
		}
		order, err := s.assemble(id)
		if err != nil {
			return nil, err
		}
		list = append(list, order)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if filter.Offset >= len(list) {
		return []*domain.Order{}, nil
	}
	list = list[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(list) {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (s *OrderStore) TransitionStatus(_ context.Context, orderID string, from, to domain.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.headers[orderID]
	if !ok {
		return false, ports.ErrNotFound
	}
	if header.Status != from {
		return false, nil
	}
	header.Status = to
	header.UpdatedAt = s.now()
	return true, nil
}

// assemble must be called with the lock held.
func (s *OrderStore) assemble(orderID string) (*domain.Order, error) {
	header, ok := s.headers[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	order := header.Clone()
	order.Lines = append([]domain.Line(nil), s.lines[orderID]...)
	return order, nil
}
