package model

// 金額はすべて最小通貨単位（セント）の整数。
const (
	// 税率（basis points。800 = 8%）
	TaxRateBasisPoints int64 = 800

	// 送料（カートが空でなく、subtotalが閾値未満のとき）
	ShippingFlatFee int64 = 500

	// この金額以上で送料無料
	FreeShippingThreshold int64 = 5000
)

// Recalculate はitemsとsubtotalから派生フィールドを再計算する。
// item_count == len(items)、total == subtotal+tax+shipping を常に保つ。
func (o *Order) Recalculate() {
	o.ItemCount = int64(len(o.Items))

	// 税は切り捨て
	o.Tax = o.Subtotal * TaxRateBasisPoints / 10000

	if o.ItemCount == 0 || o.Subtotal >= FreeShippingThreshold {
		o.Shipping = 0
	} else {
		o.Shipping = ShippingFlatFee
	}

	o.Total = o.Subtotal + o.Tax + o.Shipping
}
