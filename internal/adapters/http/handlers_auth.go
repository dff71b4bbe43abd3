package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"classbook/internal/adapters/http/middleware"
	"classbook/internal/application/orchestrators"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type accountResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// handleLogin handles POST /api/login with a JSON body or a CSRF-protected form.
// PRE: Credentials supplied as JSON {email,password} or form fields email, password
// POST: Sets the session cookie on success
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form submission")
			return
		}
		req = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
		if !validateRequest(w, &req) {
			return
		}
	}

	deps := orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		Audit:        stores.AuditStore,
		Now:          now,
	}
	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, deps)
	if err != nil {
		writeDomainError(w, r, "login", err)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		writeDomainError(w, r, "login", err)
		return
	}
	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, accountResponse{
		AccountID: result.AccountID,
		Email:     result.Email,
		Role:      result.Role,
	})
}

// handleLogout handles POST /api/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		sessions.Delete(token)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleCSRFToken handles GET /api/csrf for clients that post forms.
func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
}

// handleMe handles GET /api/me
func handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, accountResponse{
		AccountID: sess.AccountID,
		Email:     sess.Email,
		Role:      sess.Role,
	})
}
