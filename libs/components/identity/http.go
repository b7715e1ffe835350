package identity

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matapang/platform/libs/shared/errs"
	"github.com/matapang/platform/libs/shared/httpx"
)

// Handler exposes HTTP handlers for user management.
type Handler struct {
	repo Repository
}

// NewHandler creates a new identity Handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Mount registers user routes on the provided router under the supplied base path.
func (h *Handler) Mount(router chi.Router, basePath string) {
	path := strings.TrimSpace(basePath)
	if path == "" {
		path = "/users"
	}

	router.Route(path, func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getUser)
			r.Put("/", h.updateUser)
			r.Delete("/", h.deleteUser)
		})
	})
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Position string `json:"position"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Position *string `json:"position"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	role := strings.TrimSpace(r.URL.Query().Get("role"))
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	users, err := h.repo.List(r.Context(), role, search)
	if err != nil {
		httpx.Fail(w, err)
		return
	}

	items := make([]map[string]any, 0, len(users))
	for _, entity := range users {
		items = append(items, entity.ToDTO())
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	entity := &User{
		Name:     strings.TrimSpace(payload.Name),
		Email:    strings.ToLower(strings.TrimSpace(payload.Email)),
		Role:     strings.TrimSpace(payload.Role),
		Position: strings.TrimSpace(payload.Position),
	}
	if err := checkUser(entity.Name, entity.Email, entity.Role); err != nil {
		httpx.Fail(w, err)
		return
	}

	if err := h.repo.Create(r.Context(), entity); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	entity, err := h.repo.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var payload updateUserRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := make(map[string]any)
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			httpx.Fail(w, errs.Invalid("name", "name cannot be empty"))
			return
		}
		updates["name"] = name
	}
	if payload.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*payload.Email))
		if err := checkEmail(email); err != nil {
			httpx.Fail(w, err)
			return
		}
		updates["email"] = email
	}
	if payload.Role != nil {
		role := strings.TrimSpace(*payload.Role)
		if role == "" {
			httpx.Fail(w, errs.Invalid("role", "role cannot be empty"))
			return
		}
		updates["role"] = role
	}
	if payload.Position != nil {
		updates["position"] = strings.TrimSpace(*payload.Position)
	}

	if len(updates) == 0 {
		httpx.Error(w, http.StatusBadRequest, "no updates provided")
		return
	}

	entity, err := h.repo.Update(r.Context(), chi.URLParam(r, "id"), updates)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entity.ToDTO()})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func checkUser(name, email, role string) error {
	if name == "" {
		return errs.Invalid("name", "name is required")
	}
	if err := checkEmail(email); err != nil {
		return err
	}
	if role == "" {
		return errs.Invalid("role", "role is required")
	}
	return nil
}

func checkEmail(email string) error {
	if email == "" {
		return errs.Invalid("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errs.Invalid("email", "email is invalid")
	}
	return nil
}
