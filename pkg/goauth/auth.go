package goauth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"coursehub/pkg/apperr"
	"coursehub/pkg/email"
	"coursehub/pkg/logging"
	"coursehub/pkg/middleware"
	"coursehub/pkg/models"
	"coursehub/pkg/respond"
	"coursehub/pkg/sessions"

	"golang.org/x/crypto/bcrypt"
)

const (
	codeTTL     = 10 * time.Minute
	codeRetries = 5
	bcryptCost  = 10
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint, withPurchases bool) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
}

type SessionManager interface {
	Create(ctx context.Context, userID uint) (string, time.Time, error)
	Revoke(ctx context.Context, token string) error
	RevokeUser(ctx context.Context, userID uint) error
}

type CodeStore interface {
	Put(ctx context.Context, code string, p Pending, ttl time.Duration) (bool, error)
	Take(ctx context.Context, code string) (Pending, error)
}

type ProgressDeleter interface {
	DeleteByUser(ctx context.Context, userID uint) error
}

type Handler struct {
	users    UserRepository
	sessions SessionManager
	codes    CodeStore
	progress ProgressDeleter
	mail     email.Sender
	genCode  func() string
}

func NewHandler(users UserRepository, sessions SessionManager, codes CodeStore, progress ProgressDeleter, mail email.Sender) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		codes:    codes,
		progress: progress,
		mail:     mail,
		genCode:  generateCode,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID                     uint        `json:"id"`
	Name                   string      `json:"name"`
	Email                  string      `json:"email"`
	Role                   models.Role `json:"role"`
	ProMembershipExpiresAt *time.Time  `json:"pro_membership_expires_at,omitempty"`
	PurchasedCourses       []uint      `json:"purchased_courses"`
	CreatedAt              time.Time   `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Role:                   u.Role,
		ProMembershipExpiresAt: u.ProMembershipExpiresAt,
		PurchasedCourses:       make([]uint, 0, len(u.PurchasedCourses)),
		CreatedAt:              u.CreatedAt,
	}
	for _, c := range u.PurchasedCourses {
		resp.PurchasedCourses = append(resp.PurchasedCourses, c.ID)
	}
	return resp
}

// Register parks the registration under a six digit code and mails the code.
// The account is created by Verify.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	_, err := h.users.FindByEmail(r.Context(), req.Email)
	if err == nil {
		respond.Error(w, r, apperr.Conflict("email already registered"))
		return
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		respond.Error(w, r, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		respond.Error(w, r, fmt.Errorf("hash password: %w", err))
		return
	}
	pending := Pending{Email: req.Email, Name: req.Name, PasswordHash: string(hash)}

	code, err := h.park(r.Context(), pending)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	err = email.SendTemplate(r.Context(), h.mail, req.Email, "Your verification code",
		email.TemplateCode, email.CodeData{Code: code, ValidFor: codeTTL})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "code sent"})
}

func (h *Handler) park(ctx context.Context, p Pending) (string, error) {
	for i := 0; i < codeRetries; i++ {
		code := h.genCode()
		ok, err := h.codes.Put(ctx, code, p, codeTTL)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free registration code after %d tries", codeRetries)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	pending, err := h.codes.Take(r.Context(), req.Code)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	user := &models.User{
		Name:     pending.Name,
		Email:    pending.Email,
		Password: pending.PasswordHash,
		Role:     models.RoleUser,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		respond.Error(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("user registered", "user_id", user.ID)
	if !h.startSession(w, r, user) {
		return
	}
	respond.JSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	user, err := h.users.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		respond.Error(w, r, apperr.Unauthorized("invalid email or password"))
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respond.Error(w, r, apperr.Unauthorized("invalid email or password"))
		return
	}
	if !h.startSession(w, r, user) {
		return
	}
	respond.JSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	token, expires, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		respond.Error(w, r, err)
		return false
	}
	sessions.SetCookie(w, token, expires)
	return true
}

// Logout ends the current session. It succeeds without a cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessions.CookieName); err == nil {
		err := h.sessions.Revoke(r.Context(), cookie.Value)
		if err != nil && !errors.Is(err, apperr.ErrUnauthorized) {
			respond.Error(w, r, err)
			return
		}
	}
	sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.GetUserFromContext(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	user, err := h.users.FindByID(r.Context(), current.ID, true)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, newUserResponse(user))
}

// DeleteMe removes the account together with its progress and sessions.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	if err := h.progress.DeleteByUser(r.Context(), user.ID); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.sessions.RevokeUser(r.Context(), user.ID); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), user.ID); err != nil {
		respond.Error(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("user deleted")
	sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func generateCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}
