package handlers

import (
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

func sessionCookie(name, value string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens, secure bool) {
	http.SetCookie(w, sessionCookie(auth.AccessCookie, tokens.AccessToken, tokens.AccessExpiresAt, secure))
	http.SetCookie(w, sessionCookie(auth.RefreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt, secure))
}

func clearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		cookie := sessionCookie(name, "", time.Unix(0, 0), secure)
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}
