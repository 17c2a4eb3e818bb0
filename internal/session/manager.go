// Package session holds the signed-in user's API credential and profile.
//
// The browser carries only a signed cookie with an opaque session id; the
// credential and profile live in a Store on the server. Anything wrong with
// the stored data (undecodable cookie, missing record, malformed profile,
// expired JWT) is treated as "no session" and cleaned up, never reported.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"smartfin/internal/core"
	"smartfin/internal/log"
)

const (
	CookieName = "smartfin_session"
	idKey      = "sid"
)

var ErrEmptyToken = errors.New("empty credential")

// Session is an authenticated user as seen by page handlers.
type Session struct {
	ID        string
	Token     string
	User      core.User
	ExpiresAt time.Time
}

type Options struct {
	// Secret signs the cookie. Empty means a random per-process key, which
	// logs everybody out on restart.
	Secret []byte
	MaxAge time.Duration
	Secure bool
}

// Manager restores, creates and ends sessions.
type Manager struct {
	cookies *sessions.CookieStore
	store   Store
	maxAge  time.Duration
	logger  *log.Logger
	now     func() time.Time
}

func NewManager(store Store, opts Options, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSession)

	secret := opts.Secret
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		logger.Warn("SESSION_SECRET not set, using a random key; sessions will not survive a restart")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}

	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Sets the cookie Max-Age and the codec's timestamp window together.
	cookies.MaxAge(int(opts.MaxAge.Seconds()))

	return &Manager{
		cookies: cookies,
		store:   store,
		maxAge:  opts.MaxAge,
		logger:  logger,
		now:     time.Now,
	}
}

// Restore returns the session carried by r, if any.
func (m *Manager) Restore(r *http.Request) (*Session, bool) {
	ctx := r.Context()

	id, err := m.sessionID(r)
	if err != nil {
		m.logger.WarnContext(ctx, "Discarding undecodable session cookie",
			log.FieldOperation, log.OpRestore,
			log.FieldError, err)
		return nil, false
	}
	if id == "" {
		return nil, false
	}

	rec, err := m.store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		m.logger.DebugContext(ctx, "Session record missing", log.FieldSessionID, id)
		return nil, false
	}
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to load session",
			log.FieldSessionID, id,
			log.FieldError, err,
			"error_type", log.ErrorTypeDatabase)
		return nil, false
	}

	if reason := m.invalid(rec); reason != "" {
		m.logger.WarnContext(ctx, "Discarding stored session",
			log.FieldSessionID, id,
			"reason", reason)
		m.discard(ctx, id)
		return nil, false
	}

	var user core.User
	if err := json.Unmarshal(rec.Profile, &user); err != nil {
		m.logger.WarnContext(ctx, "Discarding stored session",
			log.FieldSessionID, id,
			"reason", "malformed profile",
			log.FieldError, err)
		m.discard(ctx, id)
		return nil, false
	}

	return &Session{ID: id, Token: rec.Token, User: user, ExpiresAt: rec.ExpiresAt}, true
}

func (m *Manager) invalid(rec Record) string {
	if rec.Token == "" {
		return "empty credential"
	}
	if tokenExpired(rec.Token, m.now()) {
		return "credential expired"
	}
	return ""
}

func (m *Manager) discard(ctx context.Context, id string) {
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.WarnContext(ctx, "Failed to delete session", log.FieldSessionID, id, log.FieldError, err)
	}
}

// Login persists token and user under a fresh session id and sets the cookie.
// Any session the request already carried is dropped.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, token string, user core.User) (*Session, error) {
	ctx := r.Context()
	if token == "" {
		return nil, ErrEmptyToken
	}

	profile, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	if old, _ := m.sessionID(r); old != "" {
		m.discard(ctx, old)
	}

	now := m.now()
	rec := Record{
		ID:        uuid.NewString(),
		Token:     token,
		Profile:   profile,
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	sess, _ := m.cookies.New(r, CookieName)
	sess.Values[idKey] = rec.ID
	if err := sess.Save(r, w); err != nil {
		m.discard(ctx, rec.ID)
		return nil, fmt.Errorf("write session cookie: %w", err)
	}

	m.logger.InfoContext(ctx, "User signed in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID,
		log.FieldSessionID, rec.ID)

	return &Session{ID: rec.ID, Token: token, User: user, ExpiresAt: rec.ExpiresAt}, nil
}

// Logout deletes the persisted record and expires the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	var err error
	if id, _ := m.sessionID(r); id != "" {
		if err = m.store.Delete(ctx, id); err != nil {
			err = fmt.Errorf("delete session: %w", err)
		}
		m.logger.InfoContext(ctx, "User signed out",
			log.FieldOperation, log.OpLogout,
			log.FieldSessionID, id)
	}
	m.clearCookie(w)
	return err
}

func (m *Manager) sessionID(r *http.Request) (string, error) {
	if _, err := r.Cookie(CookieName); err != nil {
		return "", nil
	}
	sess, err := m.cookies.New(r, CookieName)
	if err != nil {
		return "", err
	}
	id, _ := sess.Values[idKey].(string)
	return id, nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	opts := *m.cookies.Options
	opts.MaxAge = -1
	http.SetCookie(w, sessions.NewCookie(CookieName, "", &opts))
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Anything that does not parse as a JWT is an opaque credential and never
// expires client side.
func tokenExpired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now)
}
