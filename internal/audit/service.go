package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/mojcaostir/calda-challenge/internal/kafka"
	"github.com/mojcaostir/calda-challenge/internal/orders"
	"github.com/mojcaostir/calda-challenge/internal/redisx"
)

// Service consumes the movement feed for back-office tooling: dedups by
// event id, logs each movement, and mirrors it into a capped Redis list.
// The database rows remain the durable audit trail; this is a read feed.
type Service struct {
	Redis *redis.Client
	Log   *zap.Logger
	Name  string
}

func (s *Service) HandleMovement(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventMovementRecorded {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.MovementRecordedPayload](env.Payload)
	if err != nil {
		return err
	}

	s.Log.Info("movement recorded",
		zap.String("movement_id", p.MovementID),
		zap.String("variant_id", p.VariantID),
		zap.Int("delta", p.Delta),
		zap.String("reason", p.Reason),
		zap.String("order_id", p.OrderID),
		zap.String("user_id", p.UserID),
	)

	entry, err := json.Marshal(p)
	if err != nil {
		return err
	}
	pipe := s.Redis.Pipeline()
	pipe.LPush(ctx, redisx.KeyMovementFeed, entry)
	pipe.LTrim(ctx, redisx.KeyMovementFeed, 0, redisx.MovementFeedMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("feed push: %w", err)
	}
	return nil
}
