// internal/service/orchestrator/domain/pricing_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePriceNoCoupon(t *testing.T) {
	items := []PricedItem{
		{SkuID: "sku-1", Quantity: 2, UnitPrice: 3000},
		{SkuID: "sku-2", Quantity: 1, UnitPrice: 2500},
	}

	got := CalculatePrice(items, false)
	assert.Equal(t, int64(8500), got.Product)
	assert.Equal(t, int64(0), got.Discount)
	// 8500 < 9900，收固定运费
	assert.Equal(t, int64(1000), got.Shipping)
	assert.Equal(t, int64(0), got.Tax)
	assert.Equal(t, int64(9500), got.Total)
}

func TestCalculatePriceCouponDiscount(t *testing.T) {
	items := []PricedItem{
		{SkuID: "sku-1", Quantity: 1, UnitPrice: 20000},
	}

	got := CalculatePrice(items, true)
	assert.Equal(t, int64(20000), got.Product)
	assert.Equal(t, int64(2000), got.Discount)
	assert.Equal(t, int64(0), got.Shipping)
	assert.Equal(t, int64(18000), got.Total)
}

// 包邮门槛以折后金额为准：折前过线折后不过线，仍要收运费。
func TestShippingThresholdUsesDiscountedAmount(t *testing.T) {
	items := []PricedItem{
		{SkuID: "sku-1", Quantity: 1, UnitPrice: 10500},
	}

	noCoupon := CalculatePrice(items, false)
	assert.Equal(t, int64(0), noCoupon.Shipping)

	// 10500 * 0.9 = 9450 < 9900
	withCoupon := CalculatePrice(items, true)
	assert.Equal(t, int64(1050), withCoupon.Discount)
	assert.Equal(t, int64(1000), withCoupon.Shipping)
	assert.Equal(t, int64(10450), withCoupon.Total)
}

func TestShippingBoundaryExact(t *testing.T) {
	items := []PricedItem{{SkuID: "sku-1", Quantity: 1, UnitPrice: 9900}}
	got := CalculatePrice(items, false)
	assert.Equal(t, int64(0), got.Shipping)

	items[0].UnitPrice = 9899
	got = CalculatePrice(items, false)
	assert.Equal(t, int64(1000), got.Shipping)
}

func TestCalculatePriceDeterministic(t *testing.T) {
	items := []PricedItem{
		{SkuID: "sku-1", Quantity: 3, UnitPrice: 1999},
		{SkuID: "sku-2", Quantity: 2, UnitPrice: 4500},
	}

	first := CalculatePrice(items, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CalculatePrice(items, true))
	}
	assert.Equal(t, first.Product-first.Discount+first.Shipping+first.Tax, first.Total)
}

func TestCalculatePriceEmptyOrder(t *testing.T) {
	got := CalculatePrice(nil, false)
	assert.Equal(t, int64(0), got.Product)
	assert.Equal(t, int64(1000), got.Shipping)
	assert.Equal(t, int64(1000), got.Total)
}
