package pasetotoken

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

type Config struct {
	Mode Mode

	Issuer   string
	Audience string

	AccessTTL time.Duration
}

// Manager verifies access tokens minted by the identity service. Issue is
// used by the dev token command and by tests.
type Manager struct {
	cfg  Config
	keys Keys
}

func New(cfg Config, keys Keys) (*Manager, error) {
	if cfg.Mode != keys.Mode {
		return nil, ErrConfig{Msg: "cfg.Mode must match keys.Mode"}
	}
	if cfg.Issuer == "" {
		return nil, ErrConfig{Msg: "Issuer is required"}
	}
	if cfg.Audience == "" {
		return nil, ErrConfig{Msg: "Audience is required"}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	return &Manager{cfg: cfg, keys: keys}, nil
}

func (m *Manager) parser() paseto.Parser {
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.cfg.Issuer))
	p.AddRule(paseto.ForAudience(m.cfg.Audience))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(time.Now()))
	return p
}

// IssueAccess mints an access token for userID carrying email and an
// optional session id.
func (m *Manager) IssueAccess(userID uuid.UUID, email string, sessionID *uuid.UUID) (string, error) {
	now := time.Now()

	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetJti(randHex(16))
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(m.cfg.AccessTTL))
	tok.SetSubject(userID.String())

	tok.SetString("typ", string(TokenTypeAccess))
	tok.SetString("uid", userID.String())
	if email != "" {
		tok.SetString("email", email)
	}
	if sessionID != nil {
		tok.SetString("sid", sessionID.String())
	}

	if !m.keys.CanIssue() {
		return "", ErrCannotIssue
	}
	if m.cfg.Mode == ModeLocal {
		return tok.V4Encrypt(*m.keys.Symmetric, nil), nil
	}
	return tok.V4Sign(*m.keys.Secret, nil), nil
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	var (
		tok *paseto.Token
		err error
	)

	p := m.parser()
	switch m.cfg.Mode {
	case ModeLocal:
		if m.keys.Symmetric == nil {
			return nil, ErrConfig{Msg: "missing symmetric key"}
		}
		tok, err = p.ParseV4Local(*m.keys.Symmetric, tokenStr, nil)
	case ModePublic:
		if m.keys.Public == nil {
			return nil, ErrConfig{Msg: "missing public key"}
		}
		tok, err = p.ParseV4Public(*m.keys.Public, tokenStr, nil)
	default:
		return nil, ErrConfig{Msg: "unknown mode"}
	}
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}

	claims, err := extractClaims(tok)
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	return claims, nil
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func extractClaims(tok *paseto.Token) (*Claims, error) {
	jti, err := tok.GetJti()
	if err != nil {
		return nil, err
	}
	iat, err := tok.GetIssuedAt()
	if err != nil {
		return nil, err
	}
	exp, err := tok.GetExpiration()
	if err != nil {
		return nil, err
	}

	typ, err := tok.GetString("typ")
	if err != nil {
		return nil, err
	}
	uidStr, err := tok.GetString("uid")
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(uidStr)
	if err != nil {
		return nil, err
	}

	out := &Claims{
		Type:      TokenType(typ),
		UserID:    uid,
		IssuedAt:  iat,
		ExpiresAt: exp,
		TokenID:   jti,
	}

	// email and sid are optional
	if email, err := tok.GetString("email"); err == nil {
		out.Email = email
	}
	if sidStr, err := tok.GetString("sid"); err == nil {
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			return nil, err
		}
		out.SessionID = &sid
	}
	return out, nil
}
