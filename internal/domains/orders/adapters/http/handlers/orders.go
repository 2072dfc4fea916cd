package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/http/mapper"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
	apierrors "github.com/Apurer/loyalty-checkout/internal/shared/errors"
)

// IdempotencyKeyHeader lets clients retry a submission without placing twice.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrdersAPI wires HTTP transport with the orders service and placement orchestrator.
type OrdersAPI struct {
	service   ports.Service
	placement ports.PlacementOrchestrator
	problems  *apierrors.ChainedResponder
}

// NewOrdersAPI creates an OrdersAPI. When placement is nil, submissions run
// the saga in-process through the service.
func NewOrdersAPI(service ports.Service, placement ports.PlacementOrchestrator) *OrdersAPI {
	return &OrdersAPI{
		service:   service,
		placement: placement,
		problems:  apierrors.NewChainedResponder("", problemFromError),
	}
}

// Post /v1/orders
// Places an order from a cart submission
func (api *OrdersAPI) SubmitOrder(c *gin.Context) {
	var payload mapper.SubmitOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, mapper.SubmitOrderResponse{
			Success:   false,
			ErrorKind: string(application.KindValidation),
			Message:   "request body is not valid JSON",
		})
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	result, err := api.placeOrder(c.Request.Context(), mapper.ToPlaceOrderInput(payload, key))
	if err != nil {
		c.JSON(submitStatus(err), mapper.SubmitOrderResponse{
			Success:   false,
			ErrorKind: string(application.KindOf(err)),
			Message:   application.PublicMessage(err),
		})
		return
	}
	total := result.TotalAmount
	c.JSON(http.StatusOK, mapper.SubmitOrderResponse{
		Success:     true,
		OrderID:     result.OrderID,
		TotalAmount: &total,
	})
}

func (api *OrdersAPI) placeOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlaceOrderResult, error) {
	if api.placement != nil {
		return api.placement.PlaceOrder(ctx, input)
	}
	return api.service.PlaceOrder(ctx, input)
}

// Get /v1/orders
// Lists orders for the admin console
func (api *OrdersAPI) ListOrders(c *gin.Context) {
	limit, ok := api.intQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := api.intQuery(c, "offset")
	if !ok {
		return
	}
	orders, err := api.service.ListOrders(c.Request.Context(), types.ListOrdersInput{
		Status: c.Query("status"),
		Email:  c.Query("email"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		api.problems.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrders(orders))
}

// Get /v1/orders/:orderId
// Loads an order with its lines
func (api *OrdersAPI) GetOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	order, err := api.service.GetOrder(c.Request.Context(), types.OrderIdentifier{ID: orderID})
	if err != nil {
		api.respondLookupError(c, err, "order", orderID)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/complete
// Marks a pending order completed; repeating the call is a no-op
func (api *OrdersAPI) CompleteOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	order, err := api.service.CompleteOrder(c.Request.Context(), types.OrderIdentifier{ID: orderID})
	if err != nil {
		api.respondLookupError(c, err, "order", orderID)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/cancel
// Cancels a pending order and returns its stock
func (api *OrdersAPI) CancelOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	order, err := api.service.CancelOrder(c.Request.Context(), types.OrderIdentifier{ID: orderID})
	if err != nil {
		api.respondLookupError(c, err, "order", orderID)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrder(order))
}

// Get /v1/products/:productId/stock
// Reads the ledger's available quantity for a product
func (api *OrdersAPI) GetStock(c *gin.Context) {
	productID := c.Param("productId")
	level, err := api.service.StockLevel(c.Request.Context(), productID)
	if err != nil {
		api.respondLookupError(c, err, "product", productID)
		return
	}
	c.JSON(http.StatusOK, mapper.StockLevel{ProductID: productID, AvailableStock: level})
}

// respondLookupError names the missing resource in not-found problems.
func (api *OrdersAPI) respondLookupError(c *gin.Context, err error, resourceType, id string) {
	if application.KindOf(err) == application.KindNotFound {
		api.problems.NotFound(c, resourceType, id)
		return
	}
	api.problems.RespondError(c, err)
}

func (api *OrdersAPI) intQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		api.problems.ValidationFailed(c, map[string]string{name: "must be an integer"})
		return 0, false
	}
	return n, true
}

func submitStatus(err error) int {
	switch application.KindOf(err) {
	case application.KindValidation:
		return http.StatusBadRequest
	case application.KindInsufficientStock:
		return http.StatusConflict
	case application.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// problemFromError maps application errors to problem details without
// exposing storage error text.
func problemFromError(err error) (apierrors.ProblemDetail, bool) {
	msg := application.PublicMessage(err)
	switch application.KindOf(err) {
	case application.KindValidation:
		var ve *application.ValidationError
		if errors.As(err, &ve) {
			return apierrors.NewValidationProblem(map[string]string{ve.Field: ve.Reason}).WithDetail(msg), true
		}
		return apierrors.ErrValidation.WithDetail(msg), true
	case application.KindNotFound:
		return apierrors.ErrNotFound.WithDetail(msg), true
	case application.KindInvalidTransition:
		return apierrors.ErrConflict.WithDetail(msg), true
	case application.KindInsufficientStock:
		return apierrors.ErrConflict.WithDetail(msg), true
	case application.KindPersistence:
		return apierrors.ErrServiceUnavailable.WithDetail(msg), true
	case application.KindCompensationFailure:
		return apierrors.ErrManualReview.WithDetail(msg), true
	default:
		return apierrors.ProblemDetail{}, false
	}
}
