package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/models"
	"vhm-notifier/internal/store"
)

// AddressResolver resolves a recipient id to a ContactCard via the user
// store, with a redis TTL cache in front. Cache failures degrade to a
// direct store lookup.
type AddressResolver struct {
	users store.UserStore
	cache *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

func NewAddressResolver(users store.UserStore, cache *redis.Client, ttl time.Duration, log logger.Logger) *AddressResolver {
	return &AddressResolver{
		users: users,
		cache: cache,
		ttl:   ttl,
		log:   log.WithFields(map[string]interface{}{"component": "address_resolver"}),
	}
}

// Resolve returns the recipient's contact card, or nil when the
// recipient is unknown. The card is cached under contact:<id>.
func (r *AddressResolver) Resolve(ctx context.Context, recipientID string) (*ContactCard, error) {
	key := cacheKey(recipientID)

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, key).Result()
		if err == nil {
			var card ContactCard
			if jsonErr := json.Unmarshal([]byte(cached), &card); jsonErr == nil {
				return &card, nil
			}
		} else if err != redis.Nil {
			r.log.Warn("contact cache read failed", map[string]interface{}{
				"recipient": recipientID,
				"error":     err.Error(),
			})
		}
	}

	user, err := r.users.UserByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	card := cardFromUser(user)

	if r.cache != nil {
		if encoded, jsonErr := json.Marshal(card); jsonErr == nil {
			if err := r.cache.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
				r.log.Warn("contact cache write failed", map[string]interface{}{
					"recipient": recipientID,
					"error":     err.Error(),
				})
			}
		}
	}

	return card, nil
}

// Invalidate drops the cached card for a recipient.
func (r *AddressResolver) Invalidate(ctx context.Context, recipientID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Del(ctx, cacheKey(recipientID)).Err()
}

func cardFromUser(u *models.User) *ContactCard {
	return &ContactCard{
		RecipientID:    u.ID,
		TelegramChatID: u.TelegramChatID,
		Email:          u.Email,
		Phone:          u.Phone,
	}
}

func cacheKey(recipientID string) string {
	return fmt.Sprintf("contact:%s", recipientID)
}
