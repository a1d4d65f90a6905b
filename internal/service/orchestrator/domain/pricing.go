// internal/service/orchestrator/domain/pricing.go
package domain

// PricedItem 是参与计价的订单行，价格以分为单位。
type PricedItem struct {
	SkuID         string
	Quantity      int64
	UnitPrice     int64
	OriginalPrice int64
}

// PriceBreakdown 是计价结果的金额拆解，单位为分。
type PriceBreakdown struct {
	Product  int64
	Discount int64
	Shipping int64
	Tax      int64
	Total    int64
}

// 计价规则常量。
const (
	// 满 99 元包邮，否则固定 10 元运费
	freeShippingThreshold = 9900
	flatShippingFee       = 1000
	// 优惠券统一九折
	couponDiscountPercent = 10
)

// CalculatePrice 计算订单金额。纯函数，无副作用，
// Saga 重试时可以安全地重复执行。
// couponEligible 由规则引擎预先判定，这里只负责算钱。
func CalculatePrice(items []PricedItem, couponEligible bool) PriceBreakdown {
	var product int64
	for _, item := range items {
		product += item.UnitPrice * item.Quantity
	}

	var discount int64
	if couponEligible {
		discount = product * couponDiscountPercent / 100
	}

	var shipping int64
	if product-discount < freeShippingThreshold {
		shipping = flatShippingFee
	}

	// 含税价，不另计税
	var tax int64

	return PriceBreakdown{
		Product:  product,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    product - discount + shipping + tax,
	}
}
