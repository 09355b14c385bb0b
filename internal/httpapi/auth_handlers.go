package httpapi

import (
	"net/http"
	"time"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type forgotPasswordRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ackResponse struct {
	OK bool `json:"ok"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.auth.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.user.register", "user", user.Username, map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, expiresAt, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.login", "user", req.Username, nil)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
	})
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.ForgotPassword(r.Context(), req.Username, req.Email); err != nil {
		handleAuthError(w, r, err)
		return
	}
	// Same acknowledgement whether or not the pair matched an account.
	a.audit(r.Context(), "auth.password.reset.requested", "user", req.Username, nil)
	writeJSON(w, http.StatusOK, ackResponse{OK: true})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.password.reset.completed", "user", "", nil)
	writeJSON(w, http.StatusOK, ackResponse{OK: true})
}
