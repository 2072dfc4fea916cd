package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/loyalty-checkout/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/loyalty-checkout/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.PlacementOrchestrator = (*TemporalPlacement)(nil)
	_ ports.PlacementOrchestrator = (*InlinePlacement)(nil)
)

// TemporalPlacement starts placement workflows on a Temporal cluster.
type TemporalPlacement struct {
	client    client.Client
	taskQueue string
}

// NewTemporalPlacement wires a Temporal client into the orchestrator.
func NewTemporalPlacement(c client.Client) *TemporalPlacement {
	return &TemporalPlacement{client: c, taskQueue: orderworkflows.OrderPlacementTaskQueue}
}

// PlaceOrder runs the placement workflow and waits for its outcome. With an
// idempotency key, a completed placement is returned instead of re-running;
// a failed one may be retried.
func (o *TemporalPlacement) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal order placement not configured")
	}
	workflowID := buildPlacementWorkflowID(input.IdempotencyKey)
	options := client.StartWorkflowOptions{
		ID:                    workflowID,
		TaskQueue:             o.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.OrderPlacementWorkflow,
		orderworkflows.OrderPlacementWorkflowInput{Command: input, TraceID: workflowTraceID(ctx)},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) || strings.TrimSpace(input.IdempotencyKey) == "" {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var result types.PlaceOrderResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, orderactivities.DecodeError(err)
	}
	return &result, nil
}

// InlinePlacement runs the saga in-process without Temporal, useful for tests or dev fallbacks.
type InlinePlacement struct {
	service ports.Service
}

// NewInlinePlacement wraps the orders service for synchronous execution.
func NewInlinePlacement(service ports.Service) *InlinePlacement {
	return &InlinePlacement{service: service}
}

func (o *InlinePlacement) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order placement not configured")
	}
	return o.service.PlaceOrder(ctx, input)
}

func buildPlacementWorkflowID(idempotencyKey string) string {
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		return fmt.Sprintf("order-placement-idem-%s", hashIdempotencyKey(key))
	}
	return fmt.Sprintf("order-placement-%s", uuid.NewString())
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
