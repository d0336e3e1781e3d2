package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/pkg/reqctx"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	uid := uuid.New()
	ctx := reqctx.WithRequestMeta(context.Background(), &reqctx.RequestMeta{RequestID: "req-42"})
	ctx = reqctx.WithUserID(ctx, uid)
	FromContext(ctx).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", rec["request_id"])
	}
	if rec["user_id"] != uid.String() {
		t.Errorf("user_id = %v, want %s", rec["user_id"], uid)
	}
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	var debug, warn bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	l := slog.New(h)

	l.Info("info line")
	if debug.Len() == 0 {
		t.Error("debug handler did not receive info record")
	}
	if warn.Len() != 0 {
		t.Error("warn handler received info record")
	}
}

func TestLokiPayload(t *testing.T) {
	lw := &lokiWriter{labels: map[string]string{"service": "pitchside"}}
	body, err := lw.payload([]byte(`{"msg":"x"}`+"\n"), time.Unix(0, 42))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"streams":[{"stream":{"service":"pitchside"},"values":[["42","{\"msg\":\"x\"}"]]}]}`
	if string(body) != want {
		t.Errorf("payload = %s, want %s", body, want)
	}
}
