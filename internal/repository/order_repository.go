package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
)

var (
	// 条件付き更新がバージョン不一致で失敗した
	ErrVersionConflict = errors.New("version conflict")

	// PENDING注文が既に存在する（部分ユニークインデックス違反）
	ErrPendingExists = errors.New("pending order already exists")
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// 注文ストア。書き込みはCreateとUpdateWithVersionに集約する。
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	FindPendingByUserID(ctx context.Context, userID int64) (model.Order, error)

	//作成日時の新しい順
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)

	//PENDING重複はErrPendingExists
	Create(ctx context.Context, order model.Order) error

	//versionがexpectedのままなら全体を書き換えてversionをexpected+1にする。
	//不一致はErrVersionConflict、行が無ければErrNotFound。
	UpdateWithVersion(ctx context.Context, order model.Order, expected int64) error

	//管理者用（PENDING一意以外の不変条件は保証しない）
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
	Update(ctx context.Context, order model.Order) error
	Delete(ctx context.Context, orderID string) error
}
