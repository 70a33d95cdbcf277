package auth

import (
	"crypto/subtle"
	"time"

	"github.com/calehh/impact-app/config"
	"github.com/calehh/impact-app/types"
	"github.com/gorilla/securecookie"
)

const tokenName = "impact-admin"

// Gate checks the administrative shared secret and issues session tokens
// that stand in for it on privileged calls.
type Gate struct {
	secret string
	ttl    time.Duration
	codec  *securecookie.SecureCookie
	now    func() time.Time
}

type session struct {
	Subject  string
	IssuedAt int64
	Expires  int64
}

func NewGate(cfg *config.AdminConfig) (*Gate, error) {
	key, err := cfg.SessionKeyBytes()
	if err != nil {
		return nil, err
	}
	if key == nil {
		key = securecookie.GenerateRandomKey(64)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	codec := securecookie.New(key, nil)
	codec.MaxAge(int(ttl.Seconds()) + 1)
	return &Gate{
		secret: cfg.Secret,
		ttl:    ttl,
		codec:  codec,
		now:    time.Now,
	}, nil
}

// Configured reports whether a shared secret is set.
func (g *Gate) Configured() bool {
	return g.secret != ""
}

// CheckCredential reports whether supplied matches the configured secret
// exactly. It always denies when no secret is configured.
func (g *Gate) CheckCredential(supplied string) bool {
	if g.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(g.secret)) == 1
}

// IssueToken exchanges the shared secret for a signed session token.
func (g *Gate) IssueToken(supplied string) (token string, expires time.Time, err error) {
	if !g.Configured() {
		return "", time.Time{}, types.Configf("admin secret not configured")
	}
	if !g.CheckCredential(supplied) {
		return "", time.Time{}, types.NewError(types.CodeUnauthorized, nil, "invalid password")
	}
	now := g.now()
	expires = now.Add(g.ttl)
	token, err = g.codec.Encode(tokenName, session{
		Subject:  "admin",
		IssuedAt: now.Unix(),
		Expires:  expires.Unix(),
	})
	if err != nil {
		return "", time.Time{}, types.NewError(types.CodeUnknown, err, "encoding session token")
	}
	return token, expires, nil
}

// VerifyToken checks a token previously returned by IssueToken.
func (g *Gate) VerifyToken(token string) error {
	if !g.Configured() {
		return types.NewError(types.CodeUnauthorized, nil, "admin secret not configured")
	}
	if token == "" {
		return types.NewError(types.CodeUnauthorized, nil, "missing session token")
	}
	var s session
	if err := g.codec.Decode(tokenName, token, &s); err != nil {
		return types.NewError(types.CodeUnauthorized, err, "invalid session token")
	}
	if s.Subject != "admin" || g.now().Unix() >= s.Expires {
		return types.NewError(types.CodeUnauthorized, nil, "session expired")
	}
	return nil
}
