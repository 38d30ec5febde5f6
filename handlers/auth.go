package handlers

import (
	"html/template"
	"net/http"
	"time"

	"github.com/bookmapper/backend/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// defaultEmail is used when the login form leaves the email blank; the gate
// checks only the password.
const defaultEmail = "admin@example.com"

const sessionTTL = 24 * time.Hour * 7

// AuthHandler implements the password gate in front of the page routes.
// There are no user records: one configured admin password, bcrypt-compared,
// and a signed session cookie on success.
type AuthHandler struct {
	Templates    *template.Template
	JWTSecret    string
	PasswordHash []byte
	Log          zerolog.Logger
}

// HashPassword prepares the configured admin password for the handler.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

type loginData struct {
	Error string
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, loginData{})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, loginData{Error: "Invalid form submission"})
		return
	}
	password := r.PostFormValue("password")
	if bcrypt.CompareHashAndPassword(h.PasswordHash, []byte(password)) != nil {
		h.render(w, loginData{Error: "Invalid password"})
		return
	}
	email := r.PostFormValue("email")
	if email == "" {
		email = defaultEmail
	}
	token, err := h.createToken(email)
	if err != nil {
		h.Log.Error().Err(err).Msg("sign session token failed")
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) createToken(email string) (string, error) {
	claims := &middleware.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}

func (h *AuthHandler) render(w http.ResponseWriter, data loginData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Templates.ExecuteTemplate(w, "login.html", data); err != nil {
		h.Log.Error().Err(err).Msg("render login failed")
	}
}
