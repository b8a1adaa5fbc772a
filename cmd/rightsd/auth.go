package main

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-rights/cmd/rightsd/config"
	"github.com/goliatone/go-router"
	"golang.org/x/crypto/argon2"
)

const sessionCookieName = "rightsd_session"

// Argon2id parameters for the boot-time password hash.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// authGate implements the single-password login used by the dashboard.
// The plaintext password is hashed with argon2id at boot and discarded;
// sessions are HMAC-signed expiry tokens carried in a cookie.
type authGate struct {
	salt   []byte
	digest []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newAuthGate(cfg config.AuthConfig) (*authGate, error) {
	if cfg.Password == "" {
		return nil, fmt.Errorf("app password is required")
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &authGate{
		salt:   salt,
		digest: argon2.IDKey([]byte(cfg.Password), salt, argonTime, argonMemory, argonThreads, argonKeyLen),
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// VerifyPassword checks a login attempt in constant time.
func (g *authGate) VerifyPassword(password string) bool {
	if g == nil {
		return false
	}
	candidate := argon2.IDKey([]byte(password), g.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(candidate, g.digest) == 1
}

// IssueSession mints a signed session token and its expiry.
func (g *authGate) IssueSession() (string, time.Time) {
	expires := g.now().Add(g.ttl)
	payload := strconv.FormatInt(expires.Unix(), 10)
	return payload + "." + g.sign(payload), expires
}

// ValidateSession verifies a session token signature and expiry.
func (g *authGate) ValidateSession(token string) bool {
	if g == nil || token == "" {
		return false
	}
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(g.sign(payload)), []byte(sig)) != 1 {
		return false
	}
	unix, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return false
	}
	return g.now().Before(time.Unix(unix, 0))
}

func (g *authGate) sign(payload string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Middleware rejects requests without a valid session cookie.
func (g *authGate) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if g.ValidateSession(c.Cookies(sessionCookieName)) {
				return next(c)
			}
			return c.JSON(401, map[string]any{
				"error": map[string]any{
					"message": "login required",
					"code":    "unauthorized",
				},
			})
		}
	}
}

// Login handles POST /api/login.
func (a *App) Login(c router.Context) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		body.Password = c.FormValue("password")
	}
	if body.Password == "" {
		body.Password = c.FormValue("password")
	}

	if !a.Auth.VerifyPassword(body.Password) {
		a.Logger.Infof("rejected login attempt")
		return c.JSON(401, map[string]any{
			"error": map[string]any{
				"message": "invalid password",
				"code":    "invalid_password",
			},
		})
	}

	token, expires := a.Auth.IssueSession()
	c.Cookie(&router.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
	})
	return c.JSON(200, map[string]any{
		"ok":         true,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

// Logout handles POST /api/logout.
func (a *App) Logout(c router.Context) error {
	c.Cookie(&router.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
	})
	return c.JSON(200, map[string]any{"ok": true})
}
