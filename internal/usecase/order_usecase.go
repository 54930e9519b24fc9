package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 注文ステータス変更の通知先（AMQP実装）。nilなら通知しない。
type OrderEventPublisher interface {
	PublishStatusChanged(ctx context.Context, order model.Order) error
}

// OrderUsecase は注文の参照系とステータス遷移を担当します。
// 遷移は PENDING → PURCHASED → COMPLETED だけ。
type OrderUsecase struct {
	orders repo.OrderRepository
	events OrderEventPublisher
}

func NewOrderUsecase(orders repo.OrderRepository, events OrderEventPublisher) *OrderUsecase {
	return &OrderUsecase{orders: orders, events: events}
}

// GetPendingOrder はユーザーのPENDING注文を返す。無ければ404。
func (u *OrderUsecase) GetPendingOrder(ctx context.Context, userID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid user")
	}

	o, err := u.orders.FindPendingByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return o, nil
}

// ListOrders はユーザーの注文履歴を新しい順で返す。
func (u *OrderUsecase) ListOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	if userID <= 0 {
		return []model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid user")
	}

	items, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return []model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

// GetOrder はIDで1件取得。他人の注文は403。
func (u *OrderUsecase) GetOrder(ctx context.Context, userID int64, orderID string) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid user")
	}
	if orderID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return o, nil
}

// Checkout はユーザーのPENDING注文をPURCHASEDへ進める。
// 以降はカート操作が拒否される（order not mutable）。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid user")
	}

	pending, err := u.orders.FindPendingByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//空チェックはtransitionの読み直しと同じレコードに対して行う
	//（ここで見た後にカートが空にされていても確定しないように）
	return u.transition(ctx, pending.ID, model.OrderStatusPurchased, func(o model.Order) error {
		if o.ItemCount == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		return nil
	})
}

// CompleteOrder はPURCHASEDをCOMPLETEDへ進める（フルフィルメント向け）。
// 既にCOMPLETEDなら何もせず成功。
func (u *OrderUsecase) CompleteOrder(ctx context.Context, orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	return u.transition(ctx, orderID, model.OrderStatusCompleted, nil)
}

// ステータス遷移も条件付きコミットで行う。
// カート操作と同じ注文を取り合うので、version不一致は読み直してやり直す。
// preはコミット対象と同じversionの読み取りに対して毎回評価される。
func (u *OrderUsecase) transition(ctx context.Context, orderID string, to model.OrderStatus, pre func(o model.Order) error) (model.Order, error) {
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		o, err := u.orders.FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//冪等：既に目的のステータスならそのまま返す
		if o.Status == to {
			return o, nil
		}
		if !legalTransition(o.Status, to) {
			return model.Order{}, NewHTTPError(http.StatusConflict, "invalid transition")
		}
		if pre != nil {
			if err := pre(o); err != nil {
				return model.Order{}, err
			}
		}

		expected := o.Version
		o.Status = to
		switch to {
		case model.OrderStatusPurchased:
			o.Paid = true
		case model.OrderStatusCompleted:
			o.Shipped = true
		}
		o.Version = expected + 1
		o.UpdatedAt = time.Now()

		err = u.orders.UpdateWithVersion(ctx, o, expected)
		if err == nil {
			u.publish(ctx, o)
			return o, nil
		}
		if errors.Is(err, repo.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return model.Order{}, NewHTTPError(http.StatusConflict, "conflict")
}

func legalTransition(from model.OrderStatus, to model.OrderStatus) bool {
	switch {
	case from == model.OrderStatusPending && to == model.OrderStatusPurchased:
		return true
	case from == model.OrderStatusPurchased && to == model.OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// ベストエフォート通知。失敗しても注文処理は成立している。
func (u *OrderUsecase) publish(ctx context.Context, o model.Order) {
	if u.events == nil {
		return
	}
	if err := u.events.PublishStatusChanged(ctx, o); err != nil {
		log.Printf("order event publish failed: order_id=%s status=%s err=%v", o.ID, o.Status, err)
	}
}
