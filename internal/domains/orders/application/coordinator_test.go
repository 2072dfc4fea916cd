package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/memory"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

type sagaFixture struct {
	store  *faultyStore
	ledger *faultyLedger
	recon  *memory.ReconciliationLog
	events *memory.EventLog
	saga   *Coordinator
}

func newSagaFixture(t *testing.T, stock map[string]int64, opts ...Option) *sagaFixture {
	t.Helper()
	f := &sagaFixture{
		store:  newFaultyStore(),
		ledger: newFaultyLedger(stock),
		recon:  memory.NewReconciliationLog(),
		events: memory.NewEventLog(),
	}
	opts = append([]Option{WithReconciliationLog(f.recon), WithEventPublisher(f.events)}, opts...)
	f.saga = NewCoordinator(f.store, f.ledger, opts...)
	return f
}

func (f *sagaFixture) requireNoOrders(t *testing.T) {
	t.Helper()
	orders, err := f.store.List(context.Background(), ports.OrderFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
}

func cart(lines ...domain.CartLine) types.PlaceOrderInput {
	input := validInput()
	input.Lines = lines
	return input
}

func TestPlaceOrder_ScenarioA_CommitsOrderAndStock(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5})

	result, err := f.saga.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, int64(25), result.TotalAmount)
	require.Equal(t, int64(3), f.ledger.level("A"))
	require.Equal(t, int64(4), f.ledger.level("B"))

	order, err := f.store.GetByID(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, order.Status)
	require.Len(t, order.Lines, 2)
	total, err := domain.Total(order.Lines)
	require.NoError(t, err)
	require.Equal(t, total, order.TotalAmount)

	events := f.events.Events()
	require.Len(t, events, 1)
	placed, ok := events[0].(domain.OrderPlaced)
	require.True(t, ok)
	require.Equal(t, result.OrderID, placed.OrderID)
}

func TestPlaceOrder_ScenarioB_InsufficientStockLeavesNothing(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 1})

	_, err := f.saga.PlaceOrder(context.Background(), cart(domain.CartLine{ProductID: "A", Quantity: 2, UnitPrice: 10}))
	require.ErrorIs(t, err, ErrInsufficientStock)
	var se *InsufficientStockError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "A", se.ProductID)
	require.Equal(t, KindInsufficientStock, KindOf(err))

	f.requireNoOrders(t)
	require.Equal(t, int64(1), f.ledger.level("A"))
	require.Empty(t, f.events.Events())
}

func TestPlaceOrder_ScenarioC_LastUnitGoesToOneBuyer(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 1})
	input := cart(domain.CartLine{ProductID: "A", Quantity: 1, UnitPrice: 10})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.saga.PlaceOrder(context.Background(), input)
		}()
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, rejected)
	require.Zero(t, f.ledger.level("A"))

	orders, err := f.store.List(context.Background(), ports.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestPlaceOrder_ScenarioD_LineInsertFailureDeletesHeader(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5})
	f.store.insertHook = func(context.Context) error { return errors.New("connection reset") }

	_, err := f.saga.PlaceOrder(context.Background(), validInput())
	require.ErrorIs(t, err, ErrPersistence)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, StepInsertLines, pe.Step)
	require.NotContains(t, PublicMessage(err), "connection reset")

	f.requireNoOrders(t)
	require.Equal(t, 1, f.store.deleteCalls)
	require.Zero(t, f.ledger.decrementCalls)
	require.Equal(t, int64(5), f.ledger.level("A"))
}

func TestPlaceOrder_HeaderFailureHasNothingToUndo(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5})
	f.store.createHook = func(context.Context) error { return errors.New("unavailable") }

	_, err := f.saga.PlaceOrder(context.Background(), validInput())
	require.ErrorIs(t, err, ErrPersistence)
	require.Zero(t, f.store.deleteCalls)
	require.Zero(t, f.ledger.decrementCalls)
}

func TestPlaceOrder_ValidationFailsBeforeAnyWrite(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5})
	input := validInput()
	input.Buyer.Email = ""

	_, err := f.saga.PlaceOrder(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, f.store.createCalls)
	require.Zero(t, f.ledger.decrementCalls)
}

func TestPlaceOrder_OverflowingTotalIsRejected(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 10})

	_, err := f.saga.PlaceOrder(context.Background(), cart(
		domain.CartLine{ProductID: "A", Quantity: 2, UnitPrice: math.MaxInt64/2 + 1},
	))
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "cartLines[0].unitPrice", ve.Field)
	require.Zero(t, f.store.createCalls)
	require.Equal(t, int64(10), f.ledger.level("A"))
	f.requireNoOrders(t)
}

func TestPlaceOrder_LaterLineFailureRestoresEarlierLines(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5, "C": 0})

	_, err := f.saga.PlaceOrder(context.Background(), cart(
		domain.CartLine{ProductID: "A", Quantity: 2, UnitPrice: 10},
		domain.CartLine{ProductID: "B", Quantity: 3, UnitPrice: 1},
		domain.CartLine{ProductID: "C", Quantity: 1, UnitPrice: 1},
	))
	var se *InsufficientStockError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "C", se.ProductID)

	f.requireNoOrders(t)
	require.Equal(t, int64(5), f.ledger.level("A"))
	require.Equal(t, int64(5), f.ledger.level("B"))
	require.Zero(t, f.ledger.level("C"))
	require.Zero(t, f.ledger.incrementCalls["C"])
}

func TestPlaceOrder_UnknownProductIsInsufficientStock(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5})

	_, err := f.saga.PlaceOrder(context.Background(), cart(
		domain.CartLine{ProductID: "A", Quantity: 1, UnitPrice: 10},
		domain.CartLine{ProductID: "ghost", Quantity: 1, UnitPrice: 10},
	))
	var se *InsufficientStockError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "ghost", se.ProductID)
	require.Equal(t, int64(5), f.ledger.level("A"))
	f.requireNoOrders(t)
}

func TestPlaceOrder_LedgerOutageIsPersistenceError(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5})
	f.ledger.decrementHooks["B"] = func(context.Context) (bool, error) {
		return false, errors.New("ledger unavailable")
	}

	_, err := f.saga.PlaceOrder(context.Background(), validInput())
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, StepReservePrefix+"B", pe.Step)
	require.Equal(t, int64(5), f.ledger.level("A"))
	f.requireNoOrders(t)

	open, err := f.recon.ListOpen(context.Background())
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestPlaceOrder_CompensationFailureIsSurfacedAndRecorded(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 0})
	f.ledger.incrementErrs["A"] = errors.New("product record gone")

	_, err := f.saga.PlaceOrder(context.Background(), validInput())
	require.ErrorIs(t, err, ErrCompensationFailed)
	require.Equal(t, KindCompensationFailure, KindOf(err))
	var cfe *CompensationFailureError
	require.ErrorAs(t, err, &cfe)
	require.Equal(t, []string{StepReservePrefix + "A"}, cfe.FailedSteps())
	require.ErrorIs(t, cfe.Cause, ErrInsufficientStock)
	require.NotEmpty(t, cfe.OrderID)

	// The remaining compensations still ran.
	f.requireNoOrders(t)

	open, err := f.recon.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, ports.ReasonCompensationFailed, open[0].Reason)
	require.Equal(t, cfe.OrderID, open[0].OrderID)
	require.Equal(t, []string{StepReservePrefix + "A"}, open[0].FailedSteps)
}

func TestPlaceOrder_CallerCancellationStillUnwinds(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.ledger.decrementHooks["A"] = func(stepCtx context.Context) (bool, error) {
		ok, err := f.ledger.StockLedger.TryDecrement(stepCtx, "A", 2)
		cancel()
		return ok, err
	}

	_, err := f.saga.PlaceOrder(ctx, validInput())
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, context.Canceled)

	f.requireNoOrders(t)
	require.Equal(t, int64(5), f.ledger.level("A"))
	require.Equal(t, int64(5), f.ledger.level("B"))

	// B was never issued, so its outcome is not in doubt.
	open, err := f.recon.ListOpen(context.Background())
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestPlaceOrder_TimedOutDecrementIsFlaggedNotRestored(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5}, WithStepTimeout(20*time.Millisecond))
	f.ledger.decrementHooks["B"] = func(stepCtx context.Context) (bool, error) {
		<-stepCtx.Done()
		return false, stepCtx.Err()
	}

	_, err := f.saga.PlaceOrder(context.Background(), validInput())
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Equal(t, int64(5), f.ledger.level("A"))
	require.Zero(t, f.ledger.incrementCalls["B"])
	f.requireNoOrders(t)

	open, err := f.recon.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, ports.ReasonAmbiguousDecrement, open[0].Reason)
	require.Equal(t, []string{StepReservePrefix + "B"}, open[0].FailedSteps)
}

func TestPlaceOrder_TimedOutLineInsertIsStillCleanedUp(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5}, WithStepTimeout(20*time.Millisecond))
	f.store.insertHook = func(stepCtx context.Context) error {
		<-stepCtx.Done()
		return stepCtx.Err()
	}

	_, err := f.saga.PlaceOrder(context.Background(), validInput())
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, f.store.deleteCalls)
	f.requireNoOrders(t)
}

func TestPlaceOrder_ClaimedTotalMismatchIsNotRejected(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 5, "B": 5})
	input := validInput()
	claimed := int64(999)
	input.ClaimedTotal = &claimed

	result, err := f.saga.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, int64(25), result.TotalAmount)
}

func TestPlaceOrder_ConcurrentCheckoutsKeepStockExact(t *testing.T) {
	f := newSagaFixture(t, map[string]int64{"A": 10, "B": 15})
	input := cart(
		domain.CartLine{ProductID: "A", Quantity: 1, UnitPrice: 7},
		domain.CartLine{ProductID: "B", Quantity: 1, UnitPrice: 3},
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.saga.PlaceOrder(context.Background(), input)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	require.Zero(t, f.ledger.level("A"))
	require.Equal(t, int64(5), f.ledger.level("B"))

	orders, err := f.store.List(context.Background(), ports.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 10)
	for _, o := range orders {
		require.Equal(t, int64(10), o.TotalAmount)
		total, err := domain.Total(o.Lines)
		require.NoError(t, err)
		require.Equal(t, total, o.TotalAmount)
	}
}
