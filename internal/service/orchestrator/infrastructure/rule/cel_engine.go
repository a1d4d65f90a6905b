// internal/service/orchestrator/infrastructure/rule/cel_engine.go
// Package rule 用 CEL 表达式判定优惠券资格，
// 规则可配置下发而不用改代码重新发布。
package rule

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// 缺省规则：big- 前缀的大额券要求满 50 元，普通券满 10 元可用。
// couponId / userId / productAmount 是暴露给表达式的变量。
const defaultEligibilityRule = `productAmount >= 1000 && !couponId.startsWith("big-") ||
couponId.startsWith("big-") && productAmount >= 5000`

// CelCouponEngine 编译并缓存 CEL 规则，判定一张券能否用于这笔订单。
type CelCouponEngine struct {
	env  *cel.Env
	expr string

	mu       sync.RWMutex
	prgCache map[string]cel.Program
}

// NewCelCouponEngine 构建引擎。expr 为空时使用内置缺省规则。
func NewCelCouponEngine(expr string) (*CelCouponEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("couponId", cel.StringType),
		cel.Variable("userId", cel.StringType),
		cel.Variable("productAmount", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}
	if expr == "" {
		expr = defaultEligibilityRule
	}
	engine := &CelCouponEngine{
		env:      env,
		expr:     expr,
		prgCache: make(map[string]cel.Program),
	}
	// 启动时先编译一次，规则写错在进程起来时就暴露
	if _, err := engine.program(expr); err != nil {
		return nil, err
	}
	return engine, nil
}

// Eligible 判定优惠券是否适用。productAmount 单位为分。
func (e *CelCouponEngine) Eligible(ctx context.Context, couponID, userID string, productAmount int64) (bool, error) {
	prg, err := e.program(e.expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"couponId":      couponID,
		"userId":        userID,
		"productAmount": productAmount,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate coupon rule: %w", err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("coupon rule did not return bool")
	}
	return allowed, nil
}

func (e *CelCouponEngine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.prgCache[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.prgCache[expr]; hit {
		return prg, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile coupon rule: %w", issues.Err())
	}
	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("build coupon rule program: %w", err)
	}
	e.prgCache[expr] = prg
	return prg, nil
}
