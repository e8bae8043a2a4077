package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/totegamma/concrnt-journal/internal/domain"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event domain.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Realtime relays events for the channels most recently sent on input to
// output. It returns when ctx is done or input is closed.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.Event) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	var channels []string
	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-input:
			if !ok {
				return
			}
			if len(channels) > 0 {
				if err := pubsub.Unsubscribe(ctx, channels...); err != nil {
					slog.ErrorContext(
						ctx, "failed to unsubscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}
			channels = next
			if len(channels) > 0 {
				if err := pubsub.Subscribe(ctx, channels...); err != nil {
					slog.ErrorContext(
						ctx, "failed to subscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(
					ctx, "dropping malformed event",
					slog.String("channel", msg.Channel),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
