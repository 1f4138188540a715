package stockrequest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"growermarket/internal/core/apperror"
	appctx "growermarket/internal/core/context"
	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/stockrequest"
	"growermarket/internal/infrastructure/storage/memory"
	"growermarket/pkg/logger"
)

const admin = "admin-1"

type fixture struct {
	store   *memory.Store
	ledger  *ledger.Service
	service *stockrequest.Service
	unitA   id.ID
	unitB   id.ID
	grower  id.ID
	other   id.ID
}

func newFixture(t *testing.T, events stockrequest.EventPublisher) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:  store,
		unitA:  id.New(),
		unitB:  id.New(),
		grower: id.New(),
		other:  id.New(),
	}
	productID := id.New()
	store.AddProduct(catalog.Product{ID: productID, Name: "Apples"})
	store.AddUnit(catalog.SellableUnit{ID: f.unitA, ProductID: productID, Label: "1 kg"})
	store.AddUnit(catalog.SellableUnit{ID: f.unitB, ProductID: productID, Label: "5 kg", Position: 1})
	store.AddGrower(catalog.Grower{ID: f.grower, Name: "Orchard"})
	store.AddGrower(catalog.Grower{ID: f.other, Name: "Other"})

	if events == nil {
		events = memory.NewOutbox(store)
	}
	catalogRepo := memory.NewCatalogRepo(store)
	txManager := memory.NewTxManager(store)
	f.ledger = ledger.NewService(memory.NewLedgerRepo(store), catalogRepo, txManager)
	f.service = stockrequest.NewService(memory.NewRequestRepo(store), catalogRepo, f.ledger, events, txManager)
	return f
}

func (f *fixture) submit(t *testing.T, grower, unit id.ID, stock int64, price string) *stockrequest.StockChangeRequest {
	t.Helper()
	in := stockrequest.SubmitInput{GrowerID: grower, UnitID: unit, RequestedStock: stock}
	if price != "" {
		p := types.MustMoney(price)
		in.RequestedPrice = &p
	}
	req, err := f.service.Submit(context.Background(), in)
	require.NoError(t, err)
	return req
}

func (f *fixture) stock(t *testing.T, grower, unit id.ID) (int64, bool) {
	t.Helper()
	records, err := f.ledger.GetRecordsForUnit(context.Background(), unit)
	require.NoError(t, err)
	for _, r := range records {
		if r.GrowerID == grower {
			return r.Stock, true
		}
	}
	return 0, false
}

type failingPublisher struct{}

func (failingPublisher) PublishProcessed(context.Context, stockrequest.ProcessedEvent) error {
	return errors.New("broker unavailable")
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, nil)

	req := f.submit(t, f.grower, f.unitA, 12, "2.50")
	assert.Equal(t, stockrequest.StatusPending, req.Status)
	assert.Nil(t, req.ProcessedAt)

	n, err := f.service.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.Submit(ctx, stockrequest.SubmitInput{GrowerID: f.grower, UnitID: f.unitA, RequestedStock: -1})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.service.Submit(ctx, stockrequest.SubmitInput{GrowerID: f.grower, UnitID: id.New(), RequestedStock: 1})
	assert.True(t, apperror.IsNotFound(err))

	// No price and no existing offer.
	_, err = f.service.Submit(ctx, stockrequest.SubmitInput{GrowerID: f.grower, UnitID: f.unitA, RequestedStock: 1})
	assert.True(t, apperror.IsValidation(err))
}

func TestSubmit_OnePendingRequestPerUnit(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, f.grower, f.unitA, 1, "1.00")

	p := types.MustMoney("1.00")
	_, err := f.service.Submit(context.Background(), stockrequest.SubmitInput{
		GrowerID: f.grower, UnitID: f.unitA, RequestedStock: 2, RequestedPrice: &p,
	})
	assert.True(t, apperror.IsConflict(err))

	// A different unit is independent.
	f.submit(t, f.grower, f.unitB, 1, "1.00")
}

func TestApprove_CommitsToLedger(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.submit(t, f.grower, f.unitA, 12, "2.50")

	approved, err := f.service.Approve(ctx, req.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, stockrequest.StatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedAt)
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, admin, *approved.ProcessedBy)

	stock, ok := f.stock(t, f.grower, f.unitA)
	require.True(t, ok)
	assert.Equal(t, int64(12), stock)

	outbox := f.store.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, stockrequest.EventTypeProcessed, outbox[0].EventType)
	assert.Equal(t, req.ID, outbox[0].AggregateID)
}

func TestApprove_KeepsExistingPriceWhenNoneRequested(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.ledger.UpsertPrice(ctx, f.grower, f.unitA, types.MustMoney("4.20"), nil)
	require.NoError(t, err)

	req := f.submit(t, f.grower, f.unitA, 7, "")
	_, err = f.service.Approve(ctx, req.ID, admin)
	require.NoError(t, err)

	records, err := f.ledger.GetRecordsForUnit(ctx, f.unitA)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "4.20", records[0].Price.StringFixed(2))
	assert.Equal(t, int64(7), records[0].Stock)
}

func TestApprove_ConcurrentAdminsExactlyOneWins(t *testing.T) {
	f := newFixture(t, nil)
	req := f.submit(t, f.grower, f.unitA, 12, "2.50")

	const admins = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Approve(context.Background(), req.ID, admin)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, admins-1, conflicts)
	assert.Equal(t, 1, f.store.RecordCount())
	assert.Len(t, f.store.Outbox(), 1)
}

func TestApprove_AlreadyProcessed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.submit(t, f.grower, f.unitA, 1, "1.00")

	_, err := f.service.Reject(ctx, req.ID, admin, nil)
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, req.ID, admin)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAlreadyProcessed, appErr.Code)
	assert.Equal(t, string(stockrequest.StatusRejected), appErr.Details["status"])

	_, found := f.stock(t, f.grower, f.unitA)
	assert.False(t, found)
}

func TestApprove_UnknownRequest(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.Approve(context.Background(), id.New(), admin)
	assert.True(t, apperror.IsNotFound(err))
}

func TestApprove_RequiresAdmin(t *testing.T) {
	f := newFixture(t, nil)
	req := f.submit(t, f.grower, f.unitA, 1, "1.00")

	_, err := f.service.Approve(context.Background(), req.ID, "  ")
	assert.True(t, apperror.IsValidation(err))
}

func TestApprove_PublishFailureRollsBack(t *testing.T) {
	f := newFixture(t, failingPublisher{})
	ctx := context.Background()

	_, err := f.ledger.UpsertPrice(ctx, f.grower, f.unitA, types.MustMoney("3.00"), nil)
	require.NoError(t, err)
	req := f.submit(t, f.grower, f.unitA, 50, "")

	_, err = f.service.Approve(ctx, req.ID, admin)
	require.Error(t, err)

	current, err := f.service.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, stockrequest.StatusPending, current.Status)
	assert.Nil(t, current.ProcessedAt)

	stock, ok := f.stock(t, f.grower, f.unitA)
	require.True(t, ok)
	assert.Zero(t, stock)
}

func TestReject_LeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.submit(t, f.grower, f.unitA, 5, "1.00")

	reason := "  stock level looks wrong "
	rejected, err := f.service.Reject(ctx, req.ID, admin, &reason)
	require.NoError(t, err)
	assert.Equal(t, stockrequest.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "stock level looks wrong", *rejected.RejectionReason)

	assert.Zero(t, f.store.RecordCount())
	assert.Len(t, f.store.Outbox(), 1)
}

func TestAcknowledge_OnlyTouchesOwnProcessedRequests(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i, approve := range []bool{true, false, true} {
		req := f.submit(t, f.grower, f.unitA, int64(i+1), "1.00")
		var err error
		if approve {
			_, err = f.service.Approve(ctx, req.ID, admin)
		} else {
			_, err = f.service.Reject(ctx, req.ID, admin, nil)
		}
		require.NoError(t, err)
	}
	pending := f.submit(t, f.grower, f.unitB, 1, "1.00")

	foreign := f.submit(t, f.other, f.unitA, 1, "1.00")
	_, err := f.service.Approve(ctx, foreign.ID, admin)
	require.NoError(t, err)

	n, err := f.service.CountUnviewedResponses(ctx, f.grower)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	updated, err := f.service.Acknowledge(ctx, stockrequest.AcknowledgeInput{ActingGrowerID: f.grower, GrowerID: f.grower})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	n, err = f.service.CountUnviewedResponses(ctx, f.grower)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.service.CountUnviewedResponses(ctx, f.other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	still, err := f.service.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, stockrequest.StatusPending, still.Status)
	assert.Nil(t, still.ViewedAt)

	// Acknowledging again changes nothing.
	updated, err = f.service.Acknowledge(ctx, stockrequest.AcknowledgeInput{ActingGrowerID: f.grower, GrowerID: f.grower})
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestAcknowledge_SelectedRequests(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.submit(t, f.grower, f.unitA, 1, "1.00")
	_, err := f.service.Approve(ctx, first.ID, admin)
	require.NoError(t, err)
	second := f.submit(t, f.grower, f.unitB, 1, "1.00")
	_, err = f.service.Approve(ctx, second.ID, admin)
	require.NoError(t, err)
	foreign := f.submit(t, f.other, f.unitA, 1, "1.00")
	_, err = f.service.Approve(ctx, foreign.ID, admin)
	require.NoError(t, err)

	updated, err := f.service.Acknowledge(ctx, stockrequest.AcknowledgeInput{
		ActingGrowerID: f.grower,
		GrowerID:       f.grower,
		RequestIDs:     []id.ID{first.ID, foreign.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	n, err := f.service.CountUnviewedResponses(ctx, f.other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAcknowledge_OnlyTheGrowerItself(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := f.submit(t, f.grower, f.unitA, 4, "2.00")
	_, err := f.service.Approve(ctx, req.ID, admin)
	require.NoError(t, err)

	for name, acting := range map[string]id.ID{
		"another grower": f.other,
		"no grower":      {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Acknowledge(ctx, stockrequest.AcknowledgeInput{ActingGrowerID: acting, GrowerID: f.grower})
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeForbidden, appErr.Code)
		})
	}

	n, err := f.service.CountUnviewedResponses(ctx, f.grower)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAcknowledge_EmptySelectionChangesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := f.submit(t, f.grower, f.unitA, 4, "2.00")
	_, err := f.service.Approve(ctx, req.ID, admin)
	require.NoError(t, err)

	updated, err := f.service.Acknowledge(ctx, stockrequest.AcknowledgeInput{
		ActingGrowerID: f.grower,
		GrowerID:       f.grower,
		RequestIDs:     []id.ID{},
	})
	require.NoError(t, err)
	assert.Zero(t, updated)

	n, err := f.service.CountUnviewedResponses(ctx, f.grower)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListByGrower(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.submit(t, f.grower, f.unitA, 1, "1.00")
	_, err := f.service.Reject(ctx, first.ID, admin, nil)
	require.NoError(t, err)
	f.submit(t, f.grower, f.unitB, 2, "1.00")
	f.submit(t, f.other, f.unitA, 3, "1.00")

	all, err := f.service.ListByGrower(ctx, f.grower, stockrequest.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := stockrequest.StatusRejected
	rejected, err := f.service.ListByGrower(ctx, f.grower, stockrequest.ListFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, first.ID, rejected[0].ID)

	bad := stockrequest.Status("LOST")
	_, err = f.service.ListByGrower(ctx, f.grower, stockrequest.ListFilter{Status: &bad})
	assert.True(t, apperror.IsValidation(err))
}

func TestSubmit_LogLineHasNoDuplicateKeys(t *testing.T) {
	f := newFixture(t, nil)
	core, logs := observer.New(zapcore.InfoLevel)

	ctx := logger.WithLogger(context.Background(), &logger.Logger{SugaredLogger: zap.New(core).Sugar()})
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "http-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "u-1", GrowerID: f.grower.String(), Roles: []string{appctx.RoleGrower}})

	req, err := f.service.Submit(ctx, stockrequest.SubmitInput{GrowerID: f.grower, UnitID: f.unitA, RequestedStock: 4})
	require.NoError(t, err)

	entries := logs.FilterMessage("stock request submitted").All()
	require.Len(t, entries, 1)

	seen := map[string]int{}
	for _, field := range entries[0].Context {
		seen[field.Key]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "key %q logged %d times", key, n)
	}
	fields := entries[0].ContextMap()
	assert.Equal(t, "http-1", fields["request_id"])
	assert.Equal(t, req.ID.String(), fmt.Sprint(fields["stock_request_id"]))
}
