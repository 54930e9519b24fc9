package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// AdminOrderUsecase は管理コンソールの注文CRUDです。
// PENDING一意以外の不変条件は適用外（仕様どおり管理者の責任で編集する）。
type AdminOrderUsecase struct {
	orders    repo.OrderRepository
	auditRepo repo.AuditLogRepository
}

func NewAdminOrderUsecase(orders repo.OrderRepository, auditRepo repo.AuditLogRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{orders: orders, auditRepo: auditRepo}
}

type AdminUpdateOrderInput struct {
	Status  string
	Paid    *bool
	Shipped *bool
}

// 注文一覧（status/user/期間で絞り込み）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []model.Order{}, 0, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []model.Order{}, 0, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !validStatus(f.Status) {
		return []model.Order{}, 0, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	items, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return []model.Order{}, 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, total, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return o, nil
}

// 注文の直接編集（管理者）。ステータス・フラグのみ。
// PENDINGを作るとユニーク制約に当たることがあるので409で返す。
func (u *AdminOrderUsecase) Update(ctx context.Context, actorUserID int64, orderID string, in AdminUpdateOrderInput) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Status != "" && !validStatus(in.Status) {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	before, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	after := before
	if in.Status != "" {
		after.Status = model.OrderStatus(in.Status)
	}
	if in.Paid != nil {
		after.Paid = *in.Paid
	}
	if in.Shipped != nil {
		after.Shipped = *in.Shipped
	}

	if err := u.orders.Update(ctx, after); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if errors.Is(err, repo.ErrPendingExists) {
			return model.Order{}, NewHTTPError(http.StatusConflict, "pending order exists")
		}
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.writeAudit(ctx, actorUserID, model.AuditActionUpdateOrder, orderID, before, after)
	return after, nil
}

// 注文の削除（管理者）。通常フローでは注文は消えない。
func (u *AdminOrderUsecase) Delete(ctx context.Context, actorUserID int64, orderID string) error {
	if orderID == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	before, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.orders.Delete(ctx, orderID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.writeAudit(ctx, actorUserID, model.AuditActionDeleteOrder, orderID, before, nil)
	return nil
}

func validStatus(s string) bool {
	switch model.OrderStatus(s) {
	case model.OrderStatusPending, model.OrderStatusPurchased, model.OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// ベストエフォート。失敗は本処理を巻き戻さずログに残す。
func (u *AdminOrderUsecase) writeAudit(ctx context.Context, actorUserID int64, action model.AuditAction, orderID string, before interface{}, after interface{}) {
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)

	err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		log.Printf("audit write failed: action=%s resource_id=%s err=%v", action, orderID, err)
	}
}
