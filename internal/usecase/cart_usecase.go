package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 楽観ロックのリトライ上限。超えたら409 conflictで呼び出し側に返す。
const maxMutationRetries = 5

// 注文IDの発行（main.goでuuid実装を注入）
type IDGenerator interface {
	NewID() string
}

// カタログ参照キャッシュ（Redis実装）。nilなら素通し。
type ProductCache interface {
	Get(ctx context.Context, productID int64) (model.Product, bool)
	Set(ctx context.Context, p model.Product)
}

// CartUsecase はカート（＝ユーザーのPENDING注文）の業務ロジックです。
// 変更はすべて OrderRepository.UpdateWithVersion の条件付きコミットを通す。
type CartUsecase struct {
	orders   repo.OrderRepository
	products repo.ProductRepository
	cache    ProductCache
	idGen    IDGenerator
}

func NewCartUsecase(
	orders repo.OrderRepository,
	products repo.ProductRepository,
	cache ProductCache,
	idGen IDGenerator,
) *CartUsecase {
	return &CartUsecase{
		orders:   orders,
		products: products,
		cache:    cache,
		idGen:    idGen,
	}
}

// LocatePendingOrder はユーザーのPENDING注文を返す（無ければ作る）。
// 同時に初回アクセスが来ても、ユニーク制約で勝敗を決めて負けた側は取得に切り替える。
func (u *CartUsecase) LocatePendingOrder(ctx context.Context, userID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid user")
	}

	o, err := u.orders.FindPendingByUserID(ctx, userID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	now := time.Now()
	newOrder := model.Order{
		ID:        u.idGen.NewID(),
		UserID:    userID,
		Items:     model.ProductIDList{},
		Status:    model.OrderStatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newOrder.Recalculate()

	err = u.orders.Create(ctx, newOrder)
	if err == nil {
		return newOrder, nil
	}
	if errors.Is(err, repo.ErrPendingExists) {
		//作成レースに負けた側。勝った方の注文を読む。
		existing, ferr := u.orders.FindPendingByUserID(ctx, userID)
		if ferr != nil {
			return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return existing, nil
	}
	return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
}

// AddItem は商品を1ユニット追加する。価格は呼び出し側がカタログから引いて渡す。
func (u *CartUsecase) AddItem(ctx context.Context, orderID string, productID int64, unitPrice int64) (model.Order, error) {
	if err := validateMutation(orderID, productID, unitPrice); err != nil {
		return model.Order{}, err
	}
	return u.mutate(ctx, orderID, func(o *model.Order) {
		o.AddItem(productID, unitPrice)
	})
}

// DecrementItem は商品を1ユニット減らす。無ければ成功のまま何もしない。
func (u *CartUsecase) DecrementItem(ctx context.Context, orderID string, productID int64, unitPrice int64) (model.Order, error) {
	if err := validateMutation(orderID, productID, unitPrice); err != nil {
		return model.Order{}, err
	}
	return u.mutate(ctx, orderID, func(o *model.Order) {
		o.DecrementItem(productID, unitPrice)
	})
}

// RemoveAllOfItem は商品を全ユニット削除する。無ければ成功のまま何もしない。
func (u *CartUsecase) RemoveAllOfItem(ctx context.Context, orderID string, productID int64, unitPrice int64) (model.Order, error) {
	if err := validateMutation(orderID, productID, unitPrice); err != nil {
		return model.Order{}, err
	}
	return u.mutate(ctx, orderID, func(o *model.Order) {
		o.RemoveAllOfItem(productID, unitPrice)
	})
}

// read-compute-commit のループ。
// versionが合わなければ読み直してやり直す。上限を超えたら409。
func (u *CartUsecase) mutate(ctx context.Context, orderID string, apply func(o *model.Order)) (model.Order, error) {
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		o, err := u.orders.FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//PENDING以外は変更禁止
		if !o.Mutable() {
			return model.Order{}, NewHTTPError(http.StatusConflict, "order not mutable")
		}

		expected := o.Version
		apply(&o)
		o.Version = expected + 1
		o.UpdatedAt = time.Now()

		err = u.orders.UpdateWithVersion(ctx, o, expected)
		if err == nil {
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

// AddToCart はカタログで価格を引いてから追加する（プレゼン層向け）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, productID int64) (model.Order, error) {
	order, err := u.LocatePendingOrder(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}

	p, err := u.lookupProduct(ctx, productID)
	if err != nil {
		return model.Order{}, err
	}
	if !p.IsActive {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}

	return u.AddItem(ctx, order.ID, productID, p.Price)
}

// DecrementInCart は1ユニット減らす。非公開になった商品でも削除はできる。
func (u *CartUsecase) DecrementInCart(ctx context.Context, userID int64, productID int64) (model.Order, error) {
	order, err := u.LocatePendingOrder(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}

	p, err := u.lookupProduct(ctx, productID)
	if err != nil {
		return model.Order{}, err
	}

	return u.DecrementItem(ctx, order.ID, productID, p.Price)
}

// RemoveFromCart は商品を全ユニット削除する。
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, productID int64) (model.Order, error) {
	order, err := u.LocatePendingOrder(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}

	p, err := u.lookupProduct(ctx, productID)
	if err != nil {
		return model.Order{}, err
	}

	return u.RemoveAllOfItem(ctx, order.ID, productID, p.Price)
}

// カタログ参照。キャッシュがあれば先に見る。
func (u *CartUsecase) lookupProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	if u.cache != nil {
		if p, ok := u.cache.Get(ctx, productID); ok {
			return p, nil
		}
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if u.cache != nil {
		u.cache.Set(ctx, p)
	}
	return p, nil
}

func validateMutation(orderID string, productID int64, unitPrice int64) error {
	if orderID == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if unitPrice < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	return nil
}
