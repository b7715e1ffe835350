package form

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/components/approval"
	"github.com/matapang/platform/libs/components/render"
	"github.com/matapang/platform/libs/shared/httpx"
)

// Handler exposes HTTP endpoints for form management.
type Handler struct {
	service   *Service
	directory approval.Directory
	debounce  time.Duration
	logger    *zap.Logger
	extra     []func(chi.Router)
}

// HandlerOption customises the handler behaviour.
type HandlerOption func(*Handler)

// WithDirectory resolves approvers for the approval-chain endpoint.
func WithDirectory(dir approval.Directory) HandlerOption {
	return func(h *Handler) {
		h.directory = dir
	}
}

// WithSearchDebounce advertises the client search debounce window in list
// responses.
func WithSearchDebounce(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.debounce = d
	}
}

// WithFormRoutes registers additional routes under /{id}, for components
// that expose per-form endpoints.
func WithFormRoutes(mount func(chi.Router)) HandlerOption {
	return func(h *Handler) {
		if mount != nil {
			h.extra = append(h.extra, mount)
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler backed by the provided service.
func NewHandler(service *Service, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, debounce: 300 * time.Millisecond, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Mount registers the form routes on the provided router under the supplied base path.
func (h *Handler) Mount(router chi.Router, basePath string) {
	path := strings.TrimSpace(basePath)
	if path == "" {
		path = "/forms"
	}

	router.Route(path, func(r chi.Router) {
		r.Get("/", h.listForms)
		r.Post("/", h.createForm)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getForm)
			r.Put("/", h.replaceForm)
			r.Delete("/", h.deleteForm)
			r.Post("/publish", h.publishForm)
			r.Get("/render", h.renderForm)
			r.Get("/approval-chain", h.approvalChain)
			for _, mount := range h.extra {
				mount(r)
			}
		})
	})
}

func (h *Handler) listForms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Search: strings.TrimSpace(q.Get("search")),
		Status: strings.ToUpper(strings.TrimSpace(q.Get("status"))),
	}
	if raw := strings.TrimSpace(q.Get("template")); raw != "" {
		template, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "template must be true or false")
			return
		}
		filter.Template = &template
	}

	forms, err := h.service.Repository().List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(forms))
	for _, entity := range forms {
		items = append(items, entity.ToDTO())
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"total":            len(items),
			"searchDebounceMs": h.debounce.Milliseconds(),
		},
	})
}

func (h *Handler) createForm(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entity, err := h.service.Create(r.Context(), raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	entity, err := h.service.Repository().Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) replaceForm(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entity, err := h.service.Replace(r.Context(), chi.URLParam(r, "id"), raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Repository().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publishForm(w http.ResponseWriter, r *http.Request) {
	entity, err := h.service.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request) {
	_, doc, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	readOnly, _ := strconv.ParseBool(r.URL.Query().Get("readOnly"))
	view := render.Renderer{ReadOnly: readOnly}.RenderForm(doc, render.Values{})
	httpx.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) approvalChain(w http.ResponseWriter, r *http.Request) {
	_, doc, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	levels := approval.Chain(r.Context(), doc.ApprovalFlow, nil, h.directory)
	httpx.JSON(w, http.StatusOK, map[string]any{"data": levels})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("form request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	httpx.Fail(w, err)
}
