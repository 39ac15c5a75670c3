package bug

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bugtrackerpro/service-core/internal/bug/entity"
	bugrepo "github.com/bugtrackerpro/service-core/internal/bug/repo"
	"github.com/bugtrackerpro/service-core/internal/web"
)

// Handler exposes HTTP endpoints for bug operations.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// filterFromQuery maps query params onto a repo filter. "all" and
// absent both mean unconstrained; assigned_to="" selects unassigned
// bugs when the parameter is present.
func filterFromQuery(r *http.Request) bugrepo.Filter {
	q := r.URL.Query()
	var f bugrepo.Filter
	if v := q.Get("status"); v != "" && v != "all" {
		f.Status = entity.Status(v)
	}
	if v := q.Get("priority"); v != "" && v != "all" {
		f.Priority = entity.Priority(v)
	}
	if q.Has("assigned_to") {
		v := q.Get("assigned_to")
		switch v {
		case "all":
		case "":
			f.Unassigned = true
		default:
			f.AssignedTo = v
		}
	}
	f.Search = q.Get("search")
	return f
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	bugs, err := h.svc.List(r.Context(), filterFromQuery(r))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, bugs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, b)
}

// CreateRequest request body for bug creation.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.Actor(r.Context())
	if !ok {
		web.WriteError(w, web.ErrNoActor())
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid create bug payload", "err", err)
		web.WriteValidationError(w, "invalid payload")
		return
	}
	b, err := h.svc.Create(r.Context(), actor, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    entity.Priority(req.Priority),
	})
	if err != nil {
		h.logger.Debugw("create bug failed", "actor", actor.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusCreated, b)
}

// UpdateRequest carries a partial edit; omitted fields stay untouched.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.Actor(r.Context())
	if !ok {
		web.WriteError(w, web.ErrNoActor())
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid update bug payload", "err", err)
		web.WriteValidationError(w, "invalid payload")
		return
	}
	in := UpdateInput{Title: req.Title, Description: req.Description}
	if req.Priority != nil {
		p := entity.Priority(*req.Priority)
		in.Priority = &p
	}
	if req.Status != nil {
		st := entity.Status(*req.Status)
		in.Status = &st
	}
	b, err := h.svc.Update(r.Context(), actor, r.PathValue("id"), in)
	if err != nil {
		h.logger.Debugw("update bug failed", "actor", actor.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, b)
}

// StatusRequest request body for the status endpoint.
type StatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.Actor(r.Context())
	if !ok {
		web.WriteError(w, web.ErrNoActor())
		return
	}
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid status payload", "err", err)
		web.WriteValidationError(w, "invalid payload")
		return
	}
	b, err := h.svc.SetStatus(r.Context(), actor, r.PathValue("id"), entity.Status(req.Status))
	if err != nil {
		h.logger.Debugw("set status failed", "actor", actor.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, b)
}

// AssignRequest request body for the assign endpoint. A null
// assigned_to unassigns the bug.
type AssignRequest struct {
	AssignedTo *string `json:"assigned_to"`
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.Actor(r.Context())
	if !ok {
		web.WriteError(w, web.ErrNoActor())
		return
	}
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid assign payload", "err", err)
		web.WriteValidationError(w, "invalid payload")
		return
	}
	b, err := h.svc.Assign(r.Context(), actor, r.PathValue("id"), req.AssignedTo)
	if err != nil {
		h.logger.Debugw("assign bug failed", "actor", actor.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, b)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.Actor(r.Context())
	if !ok {
		web.WriteError(w, web.ErrNoActor())
		return
	}
	if err := h.svc.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		h.logger.Debugw("delete bug failed", "actor", actor.Username, "err", err)
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, nil)
}
