package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coursehub/pkg/apperr"
	"coursehub/pkg/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const CookieName = "token"

type Manager struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(db *gorm.DB, secret string, ttl time.Duration) *Manager {
	return &Manager{db: db, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Create opens a session for the user and returns the signed token that
// references it.
func (m *Manager) Create(ctx context.Context, userID uint) (string, time.Time, error) {
	now := m.now()
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"sid": sess.ID,
		"exp": sess.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, sess.ExpiresAt, nil
}

// Resolve validates the token and returns its live session.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	sid, err := m.sessionID(token)
	if err != nil {
		return nil, err
	}
	var sess models.Session
	err = m.db.WithContext(ctx).First(&sess, "id = ?", sid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("session expired")
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !sess.ExpiresAt.After(m.now()) {
		return nil, apperr.Unauthorized("session expired")
	}
	return &sess, nil
}

func (m *Manager) Revoke(ctx context.Context, token string) error {
	sid, err := m.sessionID(token)
	if err != nil {
		return err
	}
	if err := m.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", sid).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *Manager) RevokeUser(ctx context.Context, userID uint) error {
	if err := m.db.WithContext(ctx).Delete(&models.Session{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("delete sessions of user %d: %w", userID, err)
	}
	return nil
}

// Sweep removes expired sessions and reports how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	res := m.db.WithContext(ctx).Where("expires_at <= ?", m.now()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (m *Manager) sessionID(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", apperr.Wrap(apperr.KindUnauthorized, err, "invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.Unauthorized("invalid token")
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", apperr.Unauthorized("invalid token")
	}
	return sid, nil
}

func SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}
