package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"casetrack.org/internal/auth"
)

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		unauthenticated(w, r)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.auth.Users(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleUserResource routes /v1/users/{id} and /v1/users/{id}/role.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "user id must be a positive integer")
		return
	}

	switch {
	case len(parts) == 1:
		a.handleUserByID(w, r, id)
	case len(parts) == 2 && parts[1] == "role":
		a.handleUpdateUserRole(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		user, err := a.auth.UserByID(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.auth.Remove(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "auth.user.remove", "user", fmt.Sprintf("%d", id), nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleUpdateUserRole(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	user, err := a.auth.UpdateRole(r.Context(), id, role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.user.role.update", "user", fmt.Sprintf("%d", id), map[string]any{
		"role": role.String(),
	})
	writeJSON(w, http.StatusOK, user)
}
