package controllers

import (
	"context"
	"net/http"
	"time"

	"nestodo/app/middleware"
	"nestodo/app/models"
	"nestodo/app/services"
)

// AuthController handles account and session requests.
type AuthController struct {
	Service *services.AuthService
	// SecureCookie marks the session cookie Secure. Enable behind HTTPS.
	SecureCookie bool
}

// NewAuthController creates a new AuthController.
func NewAuthController(service *services.AuthService, secureCookie bool) *AuthController {
	return &AuthController{Service: service, SecureCookie: secureCookie}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// setSessionCookie stores the token for the server-rendered pages.
func (c *AuthController) setSessionCookie(w http.ResponseWriter, s models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   c.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *AuthController) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Signup handles POST /api/account.
func (c *AuthController) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), AuthTimeout)
	defer cancel()

	user, err := c.Service.Signup(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/session.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), AuthTimeout)
	defer cancel()

	session, err := c.Service.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.setSessionCookie(w, session)
	middleware.WriteJSON(w, http.StatusCreated, session)
}

// Current handles GET /api/session.
func (c *AuthController) Current(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	middleware.WriteJSON(w, http.StatusOK, user)
}

// Logout handles DELETE /api/session.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.Logout(middleware.TokenFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
