package model_test

import (
	"testing"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func newPendingOrder() model.Order {
	o := model.Order{
		ID:     "o-1",
		UserID: 1,
		Items:  model.ProductIDList{},
		Status: model.OrderStatusPending,
	}
	o.Recalculate()
	return o
}

// =====================
// Recalculate（派生フィールド）
// =====================

// 空カートは全部ゼロ
func TestOrder_Recalculate_Empty(t *testing.T) {
	o := newPendingOrder()

	assert.Equal(t, int64(0), o.ItemCount)
	assert.Equal(t, int64(0), o.Subtotal)
	assert.Equal(t, int64(0), o.Tax)
	assert.Equal(t, int64(0), o.Shipping)
	assert.Equal(t, int64(0), o.Total)
}

// $10を2回 => subtotal=$20, tax 8%=$1.60, 送料$5, total=$26.60
func TestOrder_AddItem_TwiceComputesTotals(t *testing.T) {
	o := newPendingOrder()

	o.AddItem(101, 1000)
	o.AddItem(101, 1000)

	assert.Equal(t, model.ProductIDList{101, 101}, o.Items)
	assert.Equal(t, int64(2), o.ItemCount)
	assert.Equal(t, int64(2000), o.Subtotal)
	assert.Equal(t, int64(160), o.Tax)
	assert.Equal(t, int64(500), o.Shipping)
	assert.Equal(t, int64(2660), o.Total)
}

// 0円商品だけのカートは空ではないので送料はかかる
func TestOrder_Recalculate_ZeroPricedItemsStillShip(t *testing.T) {
	o := newPendingOrder()

	o.AddItem(9, 0)

	assert.Equal(t, int64(1), o.ItemCount)
	assert.Equal(t, int64(0), o.Subtotal)
	assert.Equal(t, int64(500), o.Shipping)
	assert.Equal(t, int64(500), o.Total)
}

// $50以上で送料無料
func TestOrder_Recalculate_FreeShippingThreshold(t *testing.T) {
	o := newPendingOrder()

	o.AddItem(7, 4999)
	assert.Equal(t, int64(500), o.Shipping)

	o.AddItem(8, 1)
	assert.Equal(t, int64(5000), o.Subtotal)
	assert.Equal(t, int64(0), o.Shipping)
	assert.Equal(t, o.Subtotal+o.Tax, o.Total)
}

// =====================
// 多重集合の操作
// =====================

// 追加→1つ減らすで完全に元どおり
func TestOrder_AddThenDecrement_RestoresState(t *testing.T) {
	o := newPendingOrder()
	o.AddItem(101, 1000)
	before := o

	o.AddItem(202, 750)
	o.DecrementItem(202, 750)

	assert.Equal(t, before.Items, o.Items)
	assert.Equal(t, before.ItemCount, o.ItemCount)
	assert.Equal(t, before.Subtotal, o.Subtotal)
	assert.Equal(t, before.Tax, o.Tax)
	assert.Equal(t, before.Shipping, o.Shipping)
	assert.Equal(t, before.Total, o.Total)
}

// A→BとB→Aで最終金額は同じ
func TestOrder_AddItem_OrderIndependentTotals(t *testing.T) {
	a := newPendingOrder()
	a.AddItem(1, 1200)
	a.AddItem(2, 800)

	b := newPendingOrder()
	b.AddItem(2, 800)
	b.AddItem(1, 1200)

	assert.Equal(t, a.ItemCount, b.ItemCount)
	assert.Equal(t, a.Subtotal, b.Subtotal)
	assert.Equal(t, a.Tax, b.Tax)
	assert.Equal(t, a.Shipping, b.Shipping)
	assert.Equal(t, a.Total, b.Total)
}

// 持っていない商品のdecrementは何もしない
func TestOrder_DecrementItem_AbsentIsNoop(t *testing.T) {
	o := newPendingOrder()
	o.AddItem(101, 1000)
	before := o

	removed := o.DecrementItem(999, 1000)

	assert.False(t, removed)
	assert.Equal(t, before.Items, o.Items)
	assert.Equal(t, before.Total, o.Total)
}

// 全ユニット削除で金額もゼロに戻る
func TestOrder_RemoveAllOfItem_RemovesEveryOccurrence(t *testing.T) {
	o := newPendingOrder()
	o.AddItem(101, 1000)
	o.AddItem(101, 1000)
	o.AddItem(202, 300)

	removed := o.RemoveAllOfItem(101, 1000)

	assert.Equal(t, int64(2), removed)
	assert.Equal(t, model.ProductIDList{202}, o.Items)
	assert.Equal(t, int64(1), o.ItemCount)
	assert.Equal(t, int64(300), o.Subtotal)

	removed = o.RemoveAllOfItem(202, 300)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, int64(0), o.ItemCount)
	assert.Equal(t, int64(0), o.Subtotal)
	assert.Equal(t, int64(0), o.Tax)
	assert.Equal(t, int64(0), o.Shipping)
	assert.Equal(t, int64(0), o.Total)
}

// decrementはコピー済みOrderのitemsを壊さない（配列を共有しない）
func TestOrder_DecrementItem_DoesNotAliasCopies(t *testing.T) {
	o := newPendingOrder()
	o.AddItem(101, 1000)
	o.AddItem(202, 300)
	o.AddItem(303, 50)
	snapshot := o

	o.DecrementItem(101, 1000)

	assert.Equal(t, model.ProductIDList{101, 202, 303}, snapshot.Items)
	assert.Equal(t, model.ProductIDList{202, 303}, o.Items)
}

func TestOrder_RemoveAllOfItem_AbsentIsNoop(t *testing.T) {
	o := newPendingOrder()
	o.AddItem(101, 1000)
	before := o

	removed := o.RemoveAllOfItem(999, 50)

	assert.Equal(t, int64(0), removed)
	assert.Equal(t, before.Items, o.Items)
	assert.Equal(t, before.Total, o.Total)
}

// nilでも空配列としてJSON化される（DBにnullを入れない）
func TestProductIDList_ValueAndScan(t *testing.T) {
	var empty model.ProductIDList
	v, err := empty.Value()
	assert.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v.([]byte)))

	v, err = model.ProductIDList{101, 101, 202}.Value()
	assert.NoError(t, err)

	var got model.ProductIDList
	assert.NoError(t, got.Scan(v))
	assert.Equal(t, model.ProductIDList{101, 101, 202}, got)

	assert.NoError(t, got.Scan(nil))
	assert.Equal(t, model.ProductIDList{}, got)

	assert.Error(t, got.Scan(42))
}

func TestOrder_QuantityOf(t *testing.T) {
	o := newPendingOrder()
	o.AddItem(101, 1000)
	o.AddItem(202, 300)
	o.AddItem(101, 1000)

	assert.Equal(t, int64(2), o.QuantityOf(101))
	assert.Equal(t, int64(1), o.QuantityOf(202))
	assert.Equal(t, int64(0), o.QuantityOf(999))
}

// item_count == len(items), total == subtotal+tax+shipping を
// どんな操作列の後でも満たす
func TestOrder_InvariantsHoldAfterEveryMutation(t *testing.T) {
	o := newPendingOrder()

	steps := []func(){
		func() { o.AddItem(1, 999) },
		func() { o.AddItem(2, 2500) },
		func() { o.AddItem(1, 999) },
		func() { o.DecrementItem(2, 2500) },
		func() { o.AddItem(3, 10) },
		func() { o.RemoveAllOfItem(1, 999) },
		func() { o.DecrementItem(3, 10) },
	}

	for i, step := range steps {
		step()
		assert.Equal(t, int64(len(o.Items)), o.ItemCount, "step %d", i)
		assert.Equal(t, o.Subtotal+o.Tax+o.Shipping, o.Total, "step %d", i)
	}
}
