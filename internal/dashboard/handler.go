package dashboard

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bugtrackerpro/service-core/internal/web"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, stats)
}

func (h *Handler) Workload(w http.ResponseWriter, r *http.Request) {
	workload, err := h.svc.Workload(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, workload)
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.RecentActivity(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteData(w, http.StatusOK, entries)
}

func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	web.WriteData(w, http.StatusOK, h.svc.Config())
}
