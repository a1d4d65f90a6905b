// internal/service/orchestrator/infrastructure/rule/cel_engine_test.go
package rule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleEligibility(t *testing.T) {
	engine, err := NewCelCouponEngine("")
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		couponID string
		amount   int64
		want     bool
	}{
		{"normal coupon above threshold", "coupon-1", 1000, true},
		{"normal coupon below threshold", "coupon-1", 999, false},
		{"big coupon above threshold", "big-100", 5000, true},
		{"big coupon below threshold", "big-100", 4999, false},
		{"big coupon does not use normal threshold", "big-100", 1000, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Eligible(context.Background(), tc.couponID, "user-1", tc.amount)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCustomRule(t *testing.T) {
	engine, err := NewCelCouponEngine(`userId == "vip-1" || productAmount > 100000`)
	require.NoError(t, err)

	got, err := engine.Eligible(context.Background(), "any", "vip-1", 1)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = engine.Eligible(context.Background(), "any", "user-2", 1)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestInvalidRuleFailsAtConstruction(t *testing.T) {
	_, err := NewCelCouponEngine(`productAmount +`)
	assert.Error(t, err)
}

func TestNonBoolRuleRejected(t *testing.T) {
	engine, err := NewCelCouponEngine(`productAmount + 1`)
	require.NoError(t, err)

	_, err = engine.Eligible(context.Background(), "coupon-1", "user-1", 100)
	assert.Error(t, err)
}
