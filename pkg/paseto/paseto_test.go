package pasetotoken

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newManager(t *testing.T, keys Keys, issuer string) *Manager {
	t.Helper()
	m, err := New(Config{Mode: keys.Mode, Issuer: issuer, Audience: "pitchside-api", AccessTTL: time.Minute}, keys)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestIssueVerify(t *testing.T) {
	tests := []struct {
		name string
		keys Keys
	}{
		{"local", NewLocalKeys()},
		{"public", NewPublicKeys()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t, tt.keys, "identity")
			uid, sid := uuid.New(), uuid.New()

			tok, err := m.IssueAccess(uid, "player@example.com", &sid)
			if err != nil {
				t.Fatalf("IssueAccess() error = %v", err)
			}
			claims, err := m.Verify(tok)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if claims.UserID != uid || claims.Email != "player@example.com" {
				t.Errorf("claims = %+v, want user %s", claims, uid)
			}
			if claims.SessionID == nil || *claims.SessionID != sid {
				t.Errorf("SessionID = %v, want %s", claims.SessionID, sid)
			}
			if claims.Type != TokenTypeAccess {
				t.Errorf("Type = %q, want access", claims.Type)
			}
		})
	}
}

func TestVerify_RejectsForeignIssuer(t *testing.T) {
	keys := NewLocalKeys()
	tok, err := newManager(t, keys, "someone-else").IssueAccess(uuid.New(), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = newManager(t, keys, "identity").Verify(tok)
	var invalid ErrInvalidToken
	if !errors.As(err, &invalid) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestLoadKeys_UnknownMode(t *testing.T) {
	if _, err := LoadKeys(KeyStrings{Mode: "jwt"}); err == nil {
		t.Fatal("LoadKeys() with unknown mode succeeded")
	}
}

func TestIssueAccess_VerifyOnlyKeys(t *testing.T) {
	full := NewPublicKeys()
	verifyOnly := Keys{Mode: ModePublic, Public: full.Public}

	tok, err := newManager(t, full, "identity").IssueAccess(uuid.New(), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	m := newManager(t, verifyOnly, "identity")
	if _, err := m.Verify(tok); err != nil {
		t.Errorf("Verify() with public key only error = %v", err)
	}
	if _, err := m.IssueAccess(uuid.New(), "", nil); !errors.Is(err, ErrCannotIssue) {
		t.Errorf("IssueAccess() error = %v, want ErrCannotIssue", err)
	}
}
