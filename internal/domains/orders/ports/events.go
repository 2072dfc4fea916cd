package ports

import (
	"context"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
)

// EventPublisher pushes order lifecycle events to downstream collaborators.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
