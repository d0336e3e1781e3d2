package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/internal/store/memstore"
)

type recordingPublisher struct {
	mu     sync.Mutex
	joined []events.GameJoined
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := v.(events.GameJoined); ok {
		r.joined = append(r.joined, ev)
	}
	return nil
}

func setup(maxPlayers int, price int64) (*memstore.Store, *recordingPublisher, Service, store.Game) {
	db := memstore.New()
	g := store.Game{
		ID: uuid.New(), HostID: uuid.New(), VenueID: uuid.New(), Title: "Sunday 5-a-side",
		GameDate: "2026-01-25", GameTime: "10:00", PricePerPlayer: price, MaxPlayers: maxPlayers,
	}
	db.PutGame(g)
	pub := &recordingPublisher{}
	return db, pub, New(db, pub), g
}

func TestJoin_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, pub, svc, g := setup(10, 0)
	player := uuid.New()

	first, err := svc.Join(ctx, player, g.ID)
	if err != nil || !first.Joined {
		t.Fatalf("first Join() = %+v, %v; want joined", first, err)
	}
	second, err := svc.Join(ctx, player, g.ID)
	if err != nil || second.Joined {
		t.Fatalf("second Join() = %+v, %v; want already joined", second, err)
	}
	if !second.Participant.JoinedAt.Equal(first.Participant.JoinedAt) {
		t.Error("second Join() returned a different participation")
	}

	if n, _ := db.CountParticipants(ctx, g.ID); n != 1 {
		t.Errorf("CountParticipants() = %d, want 1", n)
	}
	if len(pub.joined) != 1 || pub.joined[0].HostID != g.HostID || pub.joined[0].PlayerID != player {
		t.Errorf("host notifications = %+v, want exactly one", pub.joined)
	}
}

func TestJoin_Concurrent(t *testing.T) {
	ctx := context.Background()
	db, pub, svc, g := setup(0, 0)
	player := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Join(ctx, player, g.ID); err != nil {
				t.Errorf("Join() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n, _ := db.CountParticipants(ctx, g.ID); n != 1 {
		t.Errorf("CountParticipants() = %d, want 1", n)
	}
	if len(pub.joined) != 1 {
		t.Errorf("%d host notifications, want 1", len(pub.joined))
	}
}

func TestJoin_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		max     int
		price   int64
		prefill int
		user    uuid.UUID
		game    func(g store.Game) uuid.UUID
		wantErr error
	}{
		{"anonymous", 10, 0, 0, uuid.Nil, func(g store.Game) uuid.UUID { return g.ID }, ErrUnauthenticated},
		{"unknown game", 10, 0, 0, uuid.New(), func(store.Game) uuid.UUID { return uuid.New() }, ErrGameNotFound},
		{"paid game", 10, 500, 0, uuid.New(), func(g store.Game) uuid.UUID { return g.ID }, ErrPaidGame},
		{"full game", 2, 0, 2, uuid.New(), func(g store.Game) uuid.UUID { return g.ID }, ErrGameFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, svc, g := setup(tt.max, tt.price)
			for i := 0; i < tt.prefill; i++ {
				if _, err := svc.Join(ctx, uuid.New(), g.ID); err != nil {
					t.Fatalf("prefill Join() error = %v", err)
				}
			}
			if _, err := svc.Join(ctx, tt.user, tt.game(g)); !errors.Is(err, tt.wantErr) {
				t.Errorf("Join() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJoin_MemberOfFullGameRejoins(t *testing.T) {
	ctx := context.Background()
	_, _, svc, g := setup(1, 0)
	player := uuid.New()

	if _, err := svc.Join(ctx, player, g.ID); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	res, err := svc.Join(ctx, player, g.ID)
	if err != nil || res.Joined {
		t.Errorf("Join() on own full game = %+v, %v; want existing membership", res, err)
	}
}

func TestJoin_HostNotNotifiedOfSelf(t *testing.T) {
	_, pub, svc, g := setup(10, 0)
	if _, err := svc.Join(context.Background(), g.HostID, g.ID); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if len(pub.joined) != 0 {
		t.Errorf("%d notifications, want none when the host joins", len(pub.joined))
	}
}
