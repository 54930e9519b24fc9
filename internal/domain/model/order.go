package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPurchased OrderStatus = "PURCHASED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// items列（JSON）用。1ユニット＝1エントリの多重集合。
type ProductIDList []int64

func (l ProductIDList) Value() (driver.Value, error) {
	if l == nil {
		l = ProductIDList{}
	}
	return json.Marshal(l)
}

func (l *ProductIDList) Scan(src interface{}) error {
	if src == nil {
		*l = ProductIDList{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported items column type")
	}
}

// 注文＝カート。PENDINGの間だけitemsを変更できる。
// ユーザーごとにPENDINGは1つ（部分ユニークインデックスで保証）。
type Order struct {
	ID        string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    int64         `gorm:"not null;index;uniqueIndex:uniq_orders_user_pending,where:status = 'PENDING'" json:"user_id"`
	Items     ProductIDList `gorm:"type:jsonb;not null" json:"items"`
	ItemCount int64         `gorm:"not null" json:"item_count"`
	Subtotal  int64         `gorm:"not null" json:"subtotal"`
	Tax       int64         `gorm:"not null" json:"tax"`
	Shipping  int64         `gorm:"not null" json:"shipping"`
	Total     int64         `gorm:"not null" json:"total"`
	Paid      bool          `gorm:"not null;default:false" json:"paid"`
	Shipped   bool          `gorm:"not null;default:false" json:"shipped"`
	Status    OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Version   int64         `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// itemsを変更してよい状態か
func (o *Order) Mutable() bool {
	return o.Status == OrderStatusPending
}

// 商品を1ユニット追加する。価格は呼び出し時点のもの。
func (o *Order) AddItem(productID int64, unitPrice int64) {
	o.Items = append(o.Items, productID)
	o.Subtotal += unitPrice
	o.Recalculate()
}

// 商品を1ユニット減らす。無ければ何もしない（成功扱い）。
// コピーされたOrderと配列を共有しないよう、itemsは作り直す。
func (o *Order) DecrementItem(productID int64, unitPrice int64) bool {
	for i, id := range o.Items {
		if id == productID {
			kept := make(ProductIDList, 0, len(o.Items)-1)
			kept = append(kept, o.Items[:i]...)
			kept = append(kept, o.Items[i+1:]...)
			o.Items = kept
			o.Subtotal -= unitPrice
			o.Recalculate()
			return true
		}
	}
	return false
}

// 商品を全ユニット削除する。無ければ何もしない（成功扱い）。
func (o *Order) RemoveAllOfItem(productID int64, unitPrice int64) int64 {
	var removed int64 = 0
	kept := make(ProductIDList, 0, len(o.Items))
	for _, id := range o.Items {
		if id == productID {
			removed++
			continue
		}
		kept = append(kept, id)
	}
	if removed == 0 {
		return 0
	}
	o.Items = kept
	o.Subtotal -= unitPrice * removed
	o.Recalculate()
	return removed
}

// 商品の数量（itemsの中の出現回数）
func (o *Order) QuantityOf(productID int64) int64 {
	var n int64 = 0
	for _, id := range o.Items {
		if id == productID {
			n++
		}
	}
	return n
}
