package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// カタログ参照のRedisキャッシュ。
// カート操作のたびに価格を引くので、ここで商品レコードを短時間持つ。
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func productKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

// Get はキャッシュヒット時のみtrueを返す。Redis障害はミス扱い。
func (c *ProductCache) Get(ctx context.Context, productID int64) (model.Product, bool) {
	raw, err := c.client.Get(ctx, productKey(productID)).Result()
	if err != nil {
		return model.Product{}, false
	}

	var p model.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return model.Product{}, false
	}
	return p, true
}

// Set はベストエフォート。失敗しても呼び出し側は気にしない。
func (c *ProductCache) Set(ctx context.Context, p model.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.client.Set(ctx, productKey(p.ID), raw, c.ttl)
}

// 商品更新時に古い価格を残さないための無効化。
func (c *ProductCache) Invalidate(ctx context.Context, productID int64) {
	c.client.Del(ctx, productKey(productID))
}
