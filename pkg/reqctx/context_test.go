package reqctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want empty", got)
	}
	ctx := WithRequestMeta(context.Background(), &RequestMeta{RequestID: "req-1"})
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want req-1", got)
	}
}

func TestUserID(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Error("UserIDFromContext(empty) reported a user")
	}
	id := uuid.New()
	got, ok := UserIDFromContext(WithUserID(context.Background(), id))
	if !ok || got != id {
		t.Errorf("UserIDFromContext() = %v, %v; want %v, true", got, ok, id)
	}
}
