// internal/service/orchestrator/application/coordinator.go
package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gomall/internal/pkg/logger"
	"gomall/internal/pkg/metrics"
	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/port"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	// 单个步骤内瞬时错误的最大尝试次数
	maxStepAttempts  = 3
	retryBaseBackoff = 100 * time.Millisecond
	// 补偿独立于请求上下文执行，调用方断开也要把补偿走完
	compensationTimeout = 15 * time.Second
	notifyAttempts      = 3
	notifyBackoff       = time.Second
)

// CommandItem 是下单命令的一行。
type CommandItem struct {
	SkuID       string
	WarehouseID string
	Quantity    int64
}

// CreateOrderCommand 是编排器对外的唯一命令。
type CreateOrderCommand struct {
	UserID   string
	Items    []CommandItem
	Address  port.Address
	Remark   string
	CouponID string
}

// OrderDetailItem 聚合了订单行与商品快照。
type OrderDetailItem struct {
	SkuID         string
	SkuName       string
	Quantity      int64
	UnitPrice     int64
	OriginalPrice int64
}

// OrderDetail 是下单成功后返回给调用方的聚合视图。
type OrderDetail struct {
	OrderID     string
	OrderNumber string
	UserID      string
	Status      string
	Items       []OrderDetailItem
	Amounts     domain.PriceBreakdown
	Payment     *port.Payment
}

// Dependencies 汇集协调器需要的全部协作方。
type Dependencies struct {
	Users       port.UserService
	Products    port.ProductService
	Inventory   port.InventoryService
	Orders      port.OrderService
	Payments    port.PaymentService
	Notifier    port.NotificationProducer
	CouponRules port.CouponRuleEngine
	Store       domain.SagaStore
	Tracer      trace.Tracer
}

// Options 是协调器的运行参数。
type Options struct {
	SagaTimeout          time.Duration
	CallTimeout          time.Duration
	DefaultWarehouse     string
	EnableCouponDiscount bool
}

// Coordinator 驱动下单 saga：顺序执行各步骤，失败时按逆序补偿。
// 每次状态变化都先落 saga 日志，协调器崩溃后由恢复扫描接手。
type Coordinator struct {
	deps Dependencies
	opts Options
}

func NewCoordinator(deps Dependencies, opts Options) *Coordinator {
	if opts.SagaTimeout <= 0 {
		opts.SagaTimeout = 30 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 3 * time.Second
	}
	if opts.DefaultWarehouse == "" {
		opts.DefaultWarehouse = "DEFAULT"
	}
	return &Coordinator{deps: deps, opts: opts}
}

// execution 持有一次 saga 的运行期状态，不持久化的部分都在这里。
type execution struct {
	saga     *domain.SagaInstance
	cmd      CreateOrderCommand
	user     *port.User
	skus     map[string]port.Sku
	reserved []domain.ReservationIntent
	price    domain.PriceBreakdown
	order    *port.Order
	payment  *port.Payment
}

// CreateOrder 执行完整的下单编排。
// 返回的 error 若非 nil 一定是 *domain.OrchestrationError。
func (c *Coordinator) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderDetail, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "saga.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", cmd.UserID), attribute.Int("items.count", len(cmd.Items)))

	if err := validateCommand(cmd); err != nil {
		return nil, &domain.OrchestrationError{
			Kind: domain.KindValidation, Step: domain.StepValidateUser,
			CompensationComplete: true, Cause: err,
		}
	}

	orderID := uuid.New().String()
	// 同一 (SKU, 仓库) 的多行合并成一条预占意图。
	// 所有预占共享 referenceID（即 saga ID），不合并的话第二行会被
	// 台账当成幂等重放吞掉，造成少预占多卖。
	intents := make([]domain.ReservationIntent, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		wh := item.WarehouseID
		if wh == "" {
			wh = c.opts.DefaultWarehouse
		}
		merged := false
		for i := range intents {
			if intents[i].SkuID == item.SkuID && intents[i].WarehouseID == wh {
				intents[i].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			intents = append(intents, domain.ReservationIntent{SkuID: item.SkuID, WarehouseID: wh, Quantity: item.Quantity})
		}
	}

	saga := domain.NewSagaInstance(orderID, cmd.UserID, intents, c.opts.SagaTimeout)
	span.SetAttributes(attribute.String("saga.id", saga.ID))
	metrics.SagaStarted.Inc()

	// saga 日志写不进去就不开始，避免留下不可恢复的半截事务
	if err := c.deps.Store.Save(ctx, saga); err != nil {
		span.RecordError(err)
		return nil, &domain.OrchestrationError{
			Kind: domain.KindCollaboratorUnavailable, Step: "PersistSaga",
			CompensationComplete: true, Cause: err,
		}
	}

	ctx, cancel := context.WithDeadline(ctx, saga.Deadline)
	defer cancel()

	exec := &execution{saga: saga, cmd: cmd, skus: make(map[string]port.Sku)}

	if err := c.runValidations(ctx, exec); err != nil {
		return nil, c.compensate(ctx, exec, err)
	}
	if err := c.runStep(ctx, exec, domain.StepReserveInventory, c.reserveInventory); err != nil {
		return nil, c.compensate(ctx, exec, err)
	}
	if err := c.runStep(ctx, exec, domain.StepCalculatePrice, c.calculatePrice); err != nil {
		return nil, c.compensate(ctx, exec, err)
	}
	if err := c.runStep(ctx, exec, domain.StepCreateOrder, c.createOrder); err != nil {
		return nil, c.compensate(ctx, exec, err)
	}
	if err := c.runStep(ctx, exec, domain.StepCreatePayment, c.createPayment); err != nil {
		return nil, c.compensate(ctx, exec, err)
	}

	saga.Complete()
	c.persist(ctx, saga)
	metrics.SagaCompleted.WithLabelValues(string(domain.SagaCompleted)).Inc()
	span.SetStatus(codes.Ok, "")

	// 通知在事务边界之外：失败只记日志，独立重试，不回滚任何东西
	go c.notifyAsync(context.WithoutCancel(ctx), exec)

	return c.assembleDetail(exec), nil
}

func validateCommand(cmd CreateOrderCommand) error {
	if cmd.UserID == "" {
		return errors.New("user id is required")
	}
	if len(cmd.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for _, item := range cmd.Items {
		if item.SkuID == "" {
			return errors.New("sku id is required on every item")
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive for sku %s", item.SkuID)
		}
	}
	return nil
}

// runValidations 并行校验用户与商品。两个校验互相无依赖，
// 这是整条 saga 中唯一安全的并行点。
func (c *Coordinator) runValidations(ctx context.Context, exec *execution) *stepFailure {
	timer := prometheus.NewTimer(metrics.SagaStepDuration.WithLabelValues(domain.StepValidateUser))
	defer timer.ObserveDuration()

	var userErr, prodErr *domain.StepError
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		userErr = c.withRetry(gctx, func(callCtx context.Context) error {
			user, err := c.deps.Users.GetUser(callCtx, exec.cmd.UserID)
			if err != nil {
				return err
			}
			if user.Status != "ACTIVE" {
				return &domain.StepError{
					Kind:  domain.KindValidation,
					Cause: fmt.Errorf("user %s is not active (status=%s)", user.ID, user.Status),
				}
			}
			exec.user = user
			return nil
		})
		return nil
	})

	g.Go(func() error {
		prodErr = c.withRetry(gctx, func(callCtx context.Context) error {
			skuIDs := make([]string, 0, len(exec.cmd.Items))
			for _, item := range exec.cmd.Items {
				skuIDs = append(skuIDs, item.SkuID)
			}
			skus, err := c.deps.Products.BatchGetSkus(callCtx, skuIDs)
			if err != nil {
				return err
			}
			found := make(map[string]port.Sku, len(skus))
			for _, sku := range skus {
				found[sku.ID] = sku
			}
			for _, id := range skuIDs {
				sku, ok := found[id]
				if !ok {
					return &domain.StepError{Kind: domain.KindValidation, Cause: fmt.Errorf("sku %s not found", id)}
				}
				if sku.Status != "ON_SALE" {
					return &domain.StepError{Kind: domain.KindValidation, Cause: fmt.Errorf("sku %s is not on sale", id)}
				}
			}
			exec.skus = found
			return nil
		})
		return nil
	})

	_ = g.Wait() // 两个 goroutine 都不返回 error，结果在 userErr / prodErr 里

	saga := exec.saga
	if userErr == nil {
		saga.MarkStepDone(domain.StepValidateUser)
	} else {
		saga.MarkStepFailed(domain.StepValidateUser, userErr)
	}
	if prodErr == nil {
		saga.MarkStepDone(domain.StepValidateProducts)
	} else {
		saga.MarkStepFailed(domain.StepValidateProducts, prodErr)
	}
	c.persist(ctx, saga)

	if userErr != nil {
		return &stepFailure{step: domain.StepValidateUser, err: userErr}
	}
	if prodErr != nil {
		return &stepFailure{step: domain.StepValidateProducts, err: prodErr}
	}
	return nil
}

// stepFailure 把失败的步骤名和分类后的错误捆在一起交给补偿流程。
type stepFailure struct {
	step string
	err  *domain.StepError
}

func (c *Coordinator) runStep(ctx context.Context, exec *execution, name string, fn func(context.Context, *execution) error) *stepFailure {
	timer := prometheus.NewTimer(metrics.SagaStepDuration.WithLabelValues(name))
	defer timer.ObserveDuration()

	err := c.withRetry(ctx, func(callCtx context.Context) error {
		return fn(callCtx, exec)
	})
	if err != nil {
		exec.saga.MarkStepFailed(name, err)
		c.persist(ctx, exec.saga)
		return &stepFailure{step: name, err: err}
	}
	exec.saga.MarkStepDone(name)
	c.persist(ctx, exec.saga)
	return nil
}

// withRetry 执行一次步骤尝试，瞬时错误按指数退避重试，
// 业务错误立刻返回。每次尝试都套独立的调用超时。
func (c *Coordinator) withRetry(ctx context.Context, fn func(context.Context) error) *domain.StepError {
	var lastErr *domain.StepError
	for attempt := 0; attempt < maxStepAttempts; attempt++ {
		if attempt > 0 {
			backoff := retryBaseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = classify(err)
		if !lastErr.Transient() {
			return lastErr
		}
		if ctx.Err() != nil {
			return &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: ctx.Err()}
		}
	}
	return lastErr
}

// classify 把任意错误归入封闭的错误类别。
// 适配层已经打好标的直接透传，未知错误一律按协作方不可用处理。
func classify(err error) *domain.StepError {
	var stepErr *domain.StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}
	return &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: err}
}

// reserveInventory 按提交顺序逐行预占库存，第一行失败即短路。
// 已成功的行记入 exec.reserved，补偿阶段据此逐行释放。
func (c *Coordinator) reserveInventory(ctx context.Context, exec *execution) error {
	for _, intent := range exec.saga.Items {
		if alreadyReserved(exec.reserved, intent) {
			continue // 步骤级重试时跳过已成功的行
		}
		err := c.deps.Inventory.Reserve(ctx, intent.SkuID, intent.WarehouseID, intent.Quantity, exec.saga.ID, "saga:"+exec.saga.ID)
		if err != nil {
			return err
		}
		exec.reserved = append(exec.reserved, intent)
	}
	return nil
}

func alreadyReserved(reserved []domain.ReservationIntent, intent domain.ReservationIntent) bool {
	for _, r := range reserved {
		if r.SkuID == intent.SkuID && r.WarehouseID == intent.WarehouseID {
			return true
		}
	}
	return false
}

// calculatePrice 调用规则引擎判定优惠券资格后执行纯函数计价。
func (c *Coordinator) calculatePrice(ctx context.Context, exec *execution) error {
	items := make([]domain.PricedItem, 0, len(exec.cmd.Items))
	var productAmount int64
	for _, item := range exec.cmd.Items {
		sku := exec.skus[item.SkuID]
		items = append(items, domain.PricedItem{
			SkuID:         item.SkuID,
			Quantity:      item.Quantity,
			UnitPrice:     sku.Price,
			OriginalPrice: sku.OriginalPrice,
		})
		productAmount += sku.Price * item.Quantity
	}

	eligible := false
	if exec.cmd.CouponID != "" && c.opts.EnableCouponDiscount && c.deps.CouponRules != nil {
		ok, err := c.deps.CouponRules.Eligible(ctx, exec.cmd.CouponID, exec.cmd.UserID, productAmount)
		if err != nil {
			// 规则引擎出错时放弃优惠而不是让整单失败
			logger.Ctx(ctx).Warn().Err(err).Str("coupon_id", exec.cmd.CouponID).Msg("coupon rule evaluation failed, skipping discount")
		} else {
			eligible = ok
		}
	}

	exec.price = domain.CalculatePrice(items, eligible)
	return nil
}

func (c *Coordinator) createOrder(ctx context.Context, exec *execution) error {
	items := make([]port.OrderItem, 0, len(exec.cmd.Items))
	for _, item := range exec.cmd.Items {
		sku := exec.skus[item.SkuID]
		items = append(items, port.OrderItem{
			SkuID:         item.SkuID,
			Quantity:      item.Quantity,
			UnitPrice:     sku.Price,
			OriginalPrice: sku.OriginalPrice,
		})
	}
	amounts := port.OrderAmounts{
		Product:  exec.price.Product,
		Discount: exec.price.Discount,
		Shipping: exec.price.Shipping,
		Tax:      exec.price.Tax,
		Total:    exec.price.Total,
	}
	order, err := c.deps.Orders.CreateOrder(ctx, exec.saga.ID, exec.cmd.UserID, items, amounts,
		exec.cmd.Address, exec.cmd.Remark, exec.cmd.CouponID)
	if err != nil {
		return err
	}
	exec.order = order
	return nil
}

func (c *Coordinator) createPayment(ctx context.Context, exec *execution) error {
	payment, err := c.deps.Payments.CreatePayment(ctx, exec.saga.ID, exec.cmd.UserID, exec.price.Total, "ALIPAY")
	if err != nil {
		return err
	}
	exec.payment = payment
	return nil
}

// compensate 对已完成的步骤按逆序执行补偿，然后给实例定终态。
// 用独立于请求的上下文执行：调用方断开连接也不能跳过补偿。
func (c *Coordinator) compensate(ctx context.Context, exec *execution, failure *stepFailure) error {
	saga := exec.saga
	saga.BeginCompensation()
	c.persist(ctx, saga)

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	log := logger.Ctx(compCtx)
	log.Warn().Str("saga_id", saga.ID).Str("failed_step", failure.step).
		Str("kind", string(failure.err.Kind)).Err(failure.err.Cause).Msg("saga failed, compensating")

	var failedComps []string
	var firstCompErr error
	released := false

	for _, name := range saga.DoneStepsReverse() {
		var err error
		switch name {
		case domain.StepCreateOrder:
			err = c.compensateOrder(compCtx, saga)
		case domain.StepReserveInventory:
			err = c.releaseReservations(compCtx, exec)
			released = true
		default:
			// 只读步骤与纯计算步骤没有补偿动作
			saga.MarkStepCompensated(name)
			continue
		}
		if err != nil {
			metrics.CompensationExecuted.WithLabelValues(name, "failure").Inc()
			failedComps = append(failedComps, name)
			if firstCompErr == nil {
				firstCompErr = err
			}
			continue
		}
		metrics.CompensationExecuted.WithLabelValues(name, "success").Inc()
		saga.MarkStepCompensated(name)
		c.persist(compCtx, saga)
	}

	// 预占步骤自身失败时可能已经占了前几行，同样要释放
	if !released && len(exec.reserved) > 0 {
		if err := c.releaseReservations(compCtx, exec); err != nil {
			metrics.CompensationExecuted.WithLabelValues(domain.StepReserveInventory, "failure").Inc()
			failedComps = append(failedComps, domain.StepReserveInventory)
			if firstCompErr == nil {
				firstCompErr = err
			}
		} else {
			metrics.CompensationExecuted.WithLabelValues(domain.StepReserveInventory, "success").Inc()
		}
	}

	complete := len(failedComps) == 0
	if complete {
		saga.Compensated()
		metrics.SagaCompleted.WithLabelValues(string(domain.SagaCompensated)).Inc()
	} else {
		// 补偿失败不能悄悄吞掉，标成 FAILED 留给对账
		saga.Fail()
		metrics.SagaCompleted.WithLabelValues(string(domain.SagaFailed)).Inc()
		compErr := &domain.CompensationFailureError{SagaID: saga.ID, FailedSteps: failedComps, Cause: firstCompErr}
		log.Error().Str("saga_id", saga.ID).Strs("failed_steps", failedComps).
			Err(compErr).Msg("compensation incomplete, manual reconciliation required")
	}
	c.persist(compCtx, saga)

	return &domain.OrchestrationError{
		Kind:                 failure.err.Kind,
		Step:                 failure.step,
		CompensationComplete: complete,
		Cause:                failure.err.Cause,
	}
}

func (c *Coordinator) compensateOrder(ctx context.Context, saga *domain.SagaInstance) error {
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		return c.deps.Orders.CancelOrder(callCtx, saga.ID, "saga compensation")
	})
	if err != nil {
		return err
	}
	return nil
}

// releaseReservations 按预占的逆序释放，释放接口以 referenceID 幂等。
func (c *Coordinator) releaseReservations(ctx context.Context, exec *execution) error {
	var firstErr error
	for i := len(exec.reserved) - 1; i >= 0; i-- {
		intent := exec.reserved[i]
		err := c.withRetry(ctx, func(callCtx context.Context) error {
			return c.deps.Inventory.Release(callCtx, intent.SkuID, intent.WarehouseID, intent.Quantity,
				exec.saga.ID, "saga:"+exec.saga.ID)
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// notifyAsync 在 saga 完成后发出下单成功通知，带独立重试。
func (c *Coordinator) notifyAsync(ctx context.Context, exec *execution) {
	ctx, cancel := context.WithTimeout(ctx, compensationTimeout)
	defer cancel()

	n := port.Notification{
		UserID:   exec.cmd.UserID,
		Channel:  "EMAIL",
		Template: "order_created",
		Params: map[string]string{
			"orderId":     exec.saga.ID,
			"orderNumber": exec.order.OrderNumber,
			"totalAmount": strconv.FormatInt(exec.price.Total, 10),
		},
	}

	var err error
	for attempt := 0; attempt < notifyAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(notifyBackoff)
		}
		if err = c.deps.Notifier.Send(ctx, n); err == nil {
			return
		}
	}
	logger.Ctx(ctx).Error().Err(err).Str("saga_id", exec.saga.ID).Msg("order notification failed after retries")
}

func (c *Coordinator) assembleDetail(exec *execution) *OrderDetail {
	items := make([]OrderDetailItem, 0, len(exec.cmd.Items))
	for _, item := range exec.cmd.Items {
		sku := exec.skus[item.SkuID]
		items = append(items, OrderDetailItem{
			SkuID:         item.SkuID,
			SkuName:       sku.Name,
			Quantity:      item.Quantity,
			UnitPrice:     sku.Price,
			OriginalPrice: sku.OriginalPrice,
		})
	}
	return &OrderDetail{
		OrderID:     exec.order.ID,
		OrderNumber: exec.order.OrderNumber,
		UserID:      exec.cmd.UserID,
		Status:      exec.order.Status,
		Items:       items,
		Amounts:     exec.price,
		Payment:     exec.payment,
	}
}

// persist 尽力把 saga 日志写下去，写失败只记日志，不中断主流程。
func (c *Coordinator) persist(ctx context.Context, saga *domain.SagaInstance) {
	if err := c.deps.Store.Save(ctx, saga); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("saga_id", saga.ID).Msg("failed to persist saga instance")
	}
}
