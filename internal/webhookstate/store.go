package webhookstate

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

const dedupeTTL = 24 * time.Hour

// Store remembers which provider notifications have already been
// processed so redelivered webhooks become no-ops. A nil Redis client
// disables dedupe and every notification is treated as first delivery.
type Store struct {
	redis  *redis.Client
	logger *logging.Logger
}

func NewStore(redisClient *redis.Client, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{redis: redisClient, logger: logger}
}

// FirstDelivery records the channel/message pair and reports whether
// this is the first time it was seen. Redis failures fail open so a
// broken cache never drops a live notification.
func (s *Store) FirstDelivery(ctx context.Context, channelID, messageNumber string) bool {
	if s.redis == nil || channelID == "" || messageNumber == "" {
		return true
	}
	key := fmt.Sprintf("webhook:gcal:%s:%s", channelID, messageNumber)
	ok, err := s.redis.SetNX(ctx, key, "1", dedupeTTL).Result()
	if err != nil {
		s.logger.Error("webhook dedupe check failed", "key", key, "error", err)
		return true
	}
	return ok
}
