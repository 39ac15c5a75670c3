package user

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bugtrackerpro/service-core/internal/user/entity"
	"github.com/bugtrackerpro/service-core/internal/web"
)

// Handler exposes HTTP endpoints for registration, authentication and
// user administration.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		web.WriteValidationError(w, "invalid payload")
		return
	}
	result, err := h.svc.Register(r.Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     entity.Role(req.Role),
	})
	if err != nil {
		h.logger.Debugw("register failed", "username", req.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusCreated, result)
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		web.WriteValidationError(w, "invalid payload")
		return
	}
	result, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "username", req.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context()); err != nil {
		h.logger.Warnw("logout failed", "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, nil)
}

// Me returns the acting user resolved by the auth middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.Actor(r.Context())
	if !ok {
		web.WriteError(w, web.ErrNoActor())
		return
	}
	web.WriteData(w, http.StatusOK, actor)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, users)
}

func (h *Handler) ListDevelopers(w http.ResponseWriter, r *http.Request) {
	devs, err := h.svc.ListDevelopers(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, devs)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.Actor(r.Context())
	if !ok {
		web.WriteError(w, web.ErrNoActor())
		return
	}
	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		h.logger.Debugw("delete user failed", "id", id, "actor", actor.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, nil)
}
