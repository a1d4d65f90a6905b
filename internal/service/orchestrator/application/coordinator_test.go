// internal/service/orchestrator/application/coordinator_test.go
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/infrastructure"
	"gomall/internal/service/orchestrator/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

// callLog 按时间顺序记录所有协作方调用，用来断言补偿顺序。
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

type fakeUsers struct {
	users map[string]port.User
}

func (f *fakeUsers) GetUser(ctx context.Context, userID string) (*port.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, &domain.StepError{Kind: domain.KindValidation, Cause: fmt.Errorf("user %s not found", userID)}
	}
	return &u, nil
}

type fakeProducts struct {
	skus map[string]port.Sku
}

func (f *fakeProducts) BatchGetSkus(ctx context.Context, skuIDs []string) ([]port.Sku, error) {
	var out []port.Sku
	for _, id := range skuIDs {
		if sku, ok := f.skus[id]; ok {
			out = append(out, sku)
		}
	}
	return out, nil
}

type fakeInventory struct {
	log        *callLog
	mu         sync.Mutex
	failSku    string
	failErr    error
	releaseErr error

	reserved    []string
	reservedQty map[string]int64
	released    []string
}

func (f *fakeInventory) Reserve(ctx context.Context, skuID, warehouseID string, quantity int64, referenceID, operatorID string) error {
	f.log.add("reserve %s", skuID)
	if skuID == f.failSku {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved = append(f.reserved, skuID)
	if f.reservedQty == nil {
		f.reservedQty = make(map[string]int64)
	}
	f.reservedQty[skuID] += quantity
	return nil
}

func (f *fakeInventory) Release(ctx context.Context, skuID, warehouseID string, quantity int64, referenceID, operatorID string) error {
	f.log.add("release %s", skuID)
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, skuID)
	return nil
}

type fakeOrders struct {
	log       *callLog
	cancelErr error

	mu        sync.Mutex
	created   bool
	cancelled bool
}

func (f *fakeOrders) CreateOrder(ctx context.Context, orderID, userID string, items []port.OrderItem, amounts port.OrderAmounts,
	address port.Address, remark, couponID string) (*port.Order, error) {
	f.log.add("createOrder")
	f.mu.Lock()
	f.created = true
	f.mu.Unlock()
	return &port.Order{ID: orderID, OrderNumber: "SO-" + orderID[:8], Status: "CREATED", TotalAmount: amounts.Total}, nil
}

func (f *fakeOrders) CancelOrder(ctx context.Context, orderID, reason string) error {
	f.log.add("cancelOrder")
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
	return nil
}

type fakePayments struct {
	log    *callLog
	err    error
	onCall func()
}

func (f *fakePayments) CreatePayment(ctx context.Context, orderID, userID string, amount int64, method string) (*port.Payment, error) {
	f.log.add("createPayment")
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &port.Payment{ID: "pay-" + orderID[:8], Status: "PROCESSING", Method: method, Amount: amount}, nil
}

type fakeNotifier struct {
	ch chan port.Notification
}

func (f *fakeNotifier) Send(ctx context.Context, n port.Notification) error {
	select {
	case f.ch <- n:
	default:
	}
	return nil
}

type fakeRules struct {
	eligible bool
	err      error
}

func (f *fakeRules) Eligible(ctx context.Context, couponID, userID string, productAmount int64) (bool, error) {
	return f.eligible, f.err
}

// recordingStore 包一层内存日志，记住最近保存的实例 ID，
// 失败路径上调用方拿不到订单号，测试靠它定位 saga。
type recordingStore struct {
	*infrastructure.MemorySagaStore
	mu     sync.Mutex
	lastID string
}

func (s *recordingStore) Save(ctx context.Context, saga *domain.SagaInstance) error {
	s.mu.Lock()
	s.lastID = saga.ID
	s.mu.Unlock()
	return s.MemorySagaStore.Save(ctx, saga)
}

// fixture 把所有假协作方和协调器捆在一起，按需覆盖字段后调 build。
type fixture struct {
	log       *callLog
	users     *fakeUsers
	products  *fakeProducts
	inventory *fakeInventory
	orders    *fakeOrders
	payments  *fakePayments
	notifier  *fakeNotifier
	rules     *fakeRules
	store     *recordingStore
}

func newFixture() *fixture {
	log := &callLog{}
	return &fixture{
		log: log,
		users: &fakeUsers{users: map[string]port.User{
			"user-1": {ID: "user-1", Name: "Alice", Status: "ACTIVE"},
			"user-9": {ID: "user-9", Name: "Mallory", Status: "FROZEN"},
		}},
		products: &fakeProducts{skus: map[string]port.Sku{
			"sku-a": {ID: "sku-a", Name: "AirPods Case", Price: 5000, OriginalPrice: 6000, Status: "ON_SALE"},
			"sku-b": {ID: "sku-b", Name: "iPhone 15", Price: 60000, OriginalPrice: 65000, Status: "ON_SALE"},
			"sku-x": {ID: "sku-x", Name: "Legacy", Price: 100, OriginalPrice: 100, Status: "OFF_SALE"},
		}},
		inventory: &fakeInventory{log: log},
		orders:    &fakeOrders{log: log},
		payments:  &fakePayments{log: log},
		notifier:  &fakeNotifier{ch: make(chan port.Notification, 1)},
		rules:     &fakeRules{eligible: true},
		store:     &recordingStore{MemorySagaStore: infrastructure.NewMemorySagaStore()},
	}
}

func (f *fixture) build() *Coordinator {
	return NewCoordinator(Dependencies{
		Users:       f.users,
		Products:    f.products,
		Inventory:   f.inventory,
		Orders:      f.orders,
		Payments:    f.payments,
		Notifier:    f.notifier,
		CouponRules: f.rules,
		Store:       f.store,
		Tracer:      noop.NewTracerProvider().Tracer("test"),
	}, Options{
		SagaTimeout:          10 * time.Second,
		CallTimeout:          time.Second,
		EnableCouponDiscount: true,
	})
}

func twoItemCommand(couponID string) CreateOrderCommand {
	return CreateOrderCommand{
		UserID: "user-1",
		Items: []CommandItem{
			{SkuID: "sku-a", Quantity: 1},
			{SkuID: "sku-b", Quantity: 1},
		},
		Address:  port.Address{City: "Hangzhou", Street: "1 Xixi Rd", ContactName: "Alice"},
		CouponID: couponID,
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	f := newFixture()
	c := f.build()

	detail, err := c.CreateOrder(context.Background(), twoItemCommand("coupon-1"))
	require.NoError(t, err)

	// 65000 打九折 58500，折后过包邮线
	assert.Equal(t, int64(65000), detail.Amounts.Product)
	assert.Equal(t, int64(6500), detail.Amounts.Discount)
	assert.Equal(t, int64(0), detail.Amounts.Shipping)
	assert.Equal(t, int64(58500), detail.Amounts.Total)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, int64(58500), detail.Payment.Amount)
	assert.Len(t, detail.Items, 2)
	assert.Equal(t, "iPhone 15", detail.Items[1].SkuName)

	saga, err := f.store.FindByID(context.Background(), detail.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.SagaCompleted, saga.Status)
	for _, step := range saga.Steps {
		assert.Equal(t, domain.StepDone, step.Status, step.Name)
	}

	// 通知在编排之外异步发出
	select {
	case n := <-f.notifier.ch:
		assert.Equal(t, "user-1", n.UserID)
		assert.Equal(t, "order_created", n.Template)
		assert.Equal(t, detail.OrderID, n.Params["orderId"])
		assert.Equal(t, "58500", n.Params["totalAmount"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification not sent")
	}

	assert.Empty(t, f.inventory.released)
	assert.False(t, f.orders.cancelled)
}

func TestCreateOrderNoCouponChargesShippingBelowThreshold(t *testing.T) {
	f := newFixture()
	c := f.build()

	detail, err := c.CreateOrder(context.Background(), CreateOrderCommand{
		UserID: "user-1",
		Items:  []CommandItem{{SkuID: "sku-a", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), detail.Amounts.Product)
	assert.Equal(t, int64(0), detail.Amounts.Discount)
	assert.Equal(t, int64(1000), detail.Amounts.Shipping)
	assert.Equal(t, int64(6000), detail.Amounts.Total)
}

func TestInsufficientStockReleasesEarlierLines(t *testing.T) {
	f := newFixture()
	f.inventory.failSku = "sku-b"
	f.inventory.failErr = &domain.StepError{
		Kind:  domain.KindInsufficientStock,
		Cause: &domain.InsufficientStockError{SkuID: "sku-b", Requested: 1, Available: 0},
	}
	c := f.build()

	_, err := c.CreateOrder(context.Background(), twoItemCommand(""))

	var orch *domain.OrchestrationError
	require.ErrorAs(t, err, &orch)
	assert.Equal(t, domain.KindInsufficientStock, orch.Kind)
	assert.Equal(t, domain.StepReserveInventory, orch.Step)
	assert.True(t, orch.CompensationComplete)
	assert.False(t, orch.Retryable())

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.Shortfall())

	// 第一行占上了，必须释放回去
	assert.Equal(t, []string{"sku-a"}, f.inventory.released)
	assert.False(t, f.orders.created)

	f.assertSagaStatus(t, domain.SagaCompensated)
}

func TestPaymentFailureCancelsOrderAndReleasesStock(t *testing.T) {
	f := newFixture()
	f.payments.err = &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: errors.New("gateway timeout")}
	c := f.build()

	_, err := c.CreateOrder(context.Background(), twoItemCommand(""))

	var orch *domain.OrchestrationError
	require.ErrorAs(t, err, &orch)
	assert.Equal(t, domain.KindCollaboratorUnavailable, orch.Kind)
	assert.Equal(t, domain.StepCreatePayment, orch.Step)
	assert.True(t, orch.CompensationComplete)
	assert.True(t, orch.Retryable())

	assert.True(t, f.orders.cancelled)
	// 释放按预占的逆序进行
	assert.Equal(t, []string{"sku-b", "sku-a"}, f.inventory.released)

	// 补偿顺序：先取消订单，再释放库存
	calls := f.log.snapshot()
	assert.Equal(t,
		[]string{"reserve sku-a", "reserve sku-b", "createOrder",
			"createPayment", "createPayment", "createPayment",
			"cancelOrder", "release sku-b", "release sku-a"},
		calls)

	f.assertSagaStatus(t, domain.SagaCompensated)
}

func TestCompensationFailureMarksSagaFailed(t *testing.T) {
	f := newFixture()
	f.payments.err = &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: errors.New("gateway timeout")}
	f.orders.cancelErr = &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: errors.New("order service down")}
	c := f.build()

	_, err := c.CreateOrder(context.Background(), twoItemCommand(""))

	var orch *domain.OrchestrationError
	require.ErrorAs(t, err, &orch)
	// 错误类别保留首个根因，补偿未完成通过标志位表达
	assert.Equal(t, domain.KindCollaboratorUnavailable, orch.Kind)
	assert.False(t, orch.CompensationComplete)

	// 取消失败不阻止后续释放
	assert.Equal(t, []string{"sku-b", "sku-a"}, f.inventory.released)

	f.assertSagaStatus(t, domain.SagaFailed)
}

func TestInactiveUserFailsBeforeAnyReservation(t *testing.T) {
	f := newFixture()
	c := f.build()

	cmd := twoItemCommand("")
	cmd.UserID = "user-9"
	_, err := c.CreateOrder(context.Background(), cmd)

	var orch *domain.OrchestrationError
	require.ErrorAs(t, err, &orch)
	assert.Equal(t, domain.KindValidation, orch.Kind)
	assert.Equal(t, domain.StepValidateUser, orch.Step)
	assert.True(t, orch.CompensationComplete)

	assert.Empty(t, f.inventory.reserved)
	assert.False(t, f.orders.created)

	f.assertSagaStatus(t, domain.SagaCompensated)
}

func TestOffSaleSkuRejected(t *testing.T) {
	f := newFixture()
	c := f.build()

	_, err := c.CreateOrder(context.Background(), CreateOrderCommand{
		UserID: "user-1",
		Items:  []CommandItem{{SkuID: "sku-x", Quantity: 1}},
	})

	var orch *domain.OrchestrationError
	require.ErrorAs(t, err, &orch)
	assert.Equal(t, domain.KindValidation, orch.Kind)
	assert.Equal(t, domain.StepValidateProducts, orch.Step)
	assert.Empty(t, f.inventory.reserved)
}

// 同一 SKU 出现在两个订单行时，预占必须覆盖两行的总量。
// 预占共享幂等键，不合并的话第二行会被当成重放丢掉。
func TestDuplicateSkuLinesReserveFullQuantity(t *testing.T) {
	f := newFixture()
	c := f.build()

	detail, err := c.CreateOrder(context.Background(), CreateOrderCommand{
		UserID: "user-1",
		Items: []CommandItem{
			{SkuID: "sku-a", Quantity: 1},
			{SkuID: "sku-a", Quantity: 2},
		},
	})
	require.NoError(t, err)

	// 两行合并成一次预占，数量为两行之和
	assert.Equal(t, []string{"sku-a"}, f.inventory.reserved)
	assert.Equal(t, int64(3), f.inventory.reservedQty["sku-a"])

	// 计价与支付按全部三件走
	assert.Equal(t, int64(15000), detail.Amounts.Product)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, detail.Amounts.Total, detail.Payment.Amount)

	saga, err := f.store.FindByID(context.Background(), detail.OrderID)
	require.NoError(t, err)
	require.Len(t, saga.Items, 1)
	assert.Equal(t, int64(3), saga.Items[0].Quantity)
}

// 调用方中途断开不能让补偿半途而废。
func TestCallerCancellationDoesNotSkipCompensation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 支付一直失败，且第一次调用时调用方就断开了
	f.payments.err = &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: errors.New("gateway timeout")}
	f.payments.onCall = cancel
	c := f.build()

	_, err := c.CreateOrder(ctx, twoItemCommand(""))

	var orch *domain.OrchestrationError
	require.ErrorAs(t, err, &orch)
	assert.Equal(t, domain.KindCollaboratorUnavailable, orch.Kind)
	assert.True(t, orch.CompensationComplete)

	// 补偿在脱离请求的上下文里照常走完
	assert.True(t, f.orders.cancelled)
	assert.Equal(t, []string{"sku-b", "sku-a"}, f.inventory.released)
	f.assertSagaStatus(t, domain.SagaCompensated)
}

func TestRuleEngineErrorSkipsDiscountNotOrder(t *testing.T) {
	f := newFixture()
	f.rules.err = errors.New("cel evaluation failed")
	c := f.build()

	detail, err := c.CreateOrder(context.Background(), twoItemCommand("coupon-1"))
	require.NoError(t, err)

	// 规则引擎故障时放弃优惠，订单照常成交
	assert.Equal(t, int64(0), detail.Amounts.Discount)
	assert.Equal(t, int64(65000), detail.Amounts.Total)
}

func TestInvalidCommandRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture()
	c := f.build()

	for _, cmd := range []CreateOrderCommand{
		{UserID: "", Items: []CommandItem{{SkuID: "sku-a", Quantity: 1}}},
		{UserID: "user-1"},
		{UserID: "user-1", Items: []CommandItem{{SkuID: "sku-a", Quantity: 0}}},
	} {
		_, err := c.CreateOrder(context.Background(), cmd)
		var orch *domain.OrchestrationError
		require.ErrorAs(t, err, &orch)
		assert.Equal(t, domain.KindValidation, orch.Kind)
	}
	assert.Empty(t, f.log.snapshot())
}

// assertSagaStatus 从 saga 日志里找到这次编排的实例并断言终态。
func (f *fixture) assertSagaStatus(t *testing.T, want domain.SagaStatus) {
	t.Helper()
	f.store.mu.Lock()
	id := f.store.lastID
	f.store.mu.Unlock()
	require.NotEmpty(t, id)

	saga, err := f.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, want, saga.Status)

	// 终态实例不再出现在 stalled 扫描里
	stalled, err := f.store.FindStalled(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stalled)
}
