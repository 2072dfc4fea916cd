package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	orderactivities "github.com/Apurer/loyalty-checkout/internal/platform/temporal/activities/orders"
)

// PlacementActivityTimeout covers every saga step plus a full unwind.
const PlacementActivityTimeout = 2 * time.Minute

// RunOrderPlacementSequence executes the placement activity exactly once. A
// retried attempt could not tell whether the first one decremented stock.
func RunOrderPlacementSequence(ctx workflow.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order placement sequence started", "lines", len(input.Lines))
	options := workflow.ActivityOptions{
		StartToCloseTimeout: PlacementActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}

	var result types.PlaceOrderResult
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), orderactivities.PlaceOrderActivityName, input).Get(ctx, &result)
	if err != nil {
		logger.Error("order placement sequence failed", "error", err)
		return nil, err
	}
	logger.Info("order placement sequence committed", "orderId", result.OrderID)
	return &result, nil
}
