package submission

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/shared/httpx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler exposes HTTP endpoints for submissions.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler constructs a Handler backed by the provided service.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Mount registers the submission routes under the supplied base path.
func (h *Handler) Mount(router chi.Router, basePath string) {
	path := strings.TrimSpace(basePath)
	if path == "" {
		path = "/submissions"
	}

	router.Route(path, func(r chi.Router) {
		r.Get("/", h.listSubmissions)
		r.Post("/", h.createSubmission)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSubmission)
			r.Get("/view", h.viewSubmission)
			r.Patch("/data", h.editSubmission)
			r.Post("/submit", h.submitSubmission)
			r.Post("/decisions", h.decide)
			r.Get("/approval-chain", h.approvalChain)
		})
	})
}

// FormRoutes registers the per-form export route. It is meant for
// form.WithFormRoutes, which mounts it under /forms/{id}.
func (h *Handler) FormRoutes(r chi.Router) {
	r.Get("/submissions/export", h.exportSubmissions)
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		FormID: strings.TrimSpace(q.Get("formId")),
		Status: strings.ToUpper(strings.TrimSpace(q.Get("status"))),
	}

	items, err := h.service.Repository().List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToDTO())
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": map[string]any{"total": len(out)},
	})
}

func (h *Handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entity, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	entity, err := h.service.Repository().Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) viewSubmission(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) editSubmission(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Edits []Edit `json:"edits"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entity, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), payload.Edits)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) submitSubmission(w http.ResponseWriter, r *http.Request) {
	entity, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entity, err := h.service.Decide(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) approvalChain(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.Chain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": levels})
}

func (h *Handler) exportSubmissions(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), &buf)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("submission request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	httpx.Fail(w, err)
}
