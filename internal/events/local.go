package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pitchside/pitchside_backend/pkg/logs"
	"github.com/pitchside/pitchside_backend/pkg/reqctx"
)

// LocalBus delivers messages to in-process subscribers on their own
// goroutine. It stands in for NATS when no broker is configured.
type LocalBus struct {
	mu   sync.RWMutex
	subs []localSub
	wg   sync.WaitGroup
}

type localSub struct {
	pattern string
	h       Handler
}

var _ Bus = (*LocalBus)(nil)

func NewLocal() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}

	// Detach from the request so delivery outlives it.
	dctx := context.Background()
	if id := reqctx.RequestIDFromContext(ctx); id != "" {
		dctx = reqctx.WithRequestMeta(dctx, &reqctx.RequestMeta{RequestID: id})
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !subjectMatches(s.pattern, subject) {
			continue
		}
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logs.FromContext(dctx).Error("event handler panicked", "subject", subject, "panic", r)
				}
			}()
			h(dctx, subject, data)
		}(s.h)
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, localSub{pattern: subject, h: h})
	return nil
}

// Wait blocks until every delivery started so far has returned.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}

// subjectMatches applies NATS token wildcards: "*" matches one token and a
// trailing ">" matches one or more.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
