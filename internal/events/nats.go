package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/pitchside/pitchside_backend/pkg/logs"
	"github.com/pitchside/pitchside_backend/pkg/reqctx"
)

// NATSBus publishes JSON messages on a core NATS connection.
type NATSBus struct {
	nc *nats.Conn
}

var _ Bus = (*NATSBus)(nil)

func NewNATS(nc *nats.Conn) *NATSBus {
	return &NATSBus{nc: nc}
}

func (b *NATSBus) Publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	if id := reqctx.RequestIDFromContext(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	if err := b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(subject string, h Handler) error {
	_, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx := context.Background()
		if id := msg.Header.Get(headerRequestID); id != "" {
			ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: id})
		}
		defer func() {
			if r := recover(); r != nil {
				logs.FromContext(ctx).Error("event handler panicked", "subject", msg.Subject, "panic", r)
			}
		}()
		h(ctx, msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return nil
}
