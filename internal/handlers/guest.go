package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bugmatch/bugmatch/internal/auth"
)

const guestCookieName = "guest_token"

// EnsureGuest resolves the connection's stable player id from the guest
// token cookie, minting a fresh identity when absent or invalid. Must run
// before the WebSocket upgrade so the Set-Cookie header can still go out.
func EnsureGuest(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if cookie, err := r.Cookie(guestCookieName); err == nil {
		if sub, err := auth.VerifyGuestToken(cookie.Value); err == nil {
			if id, err := uuid.Parse(sub); err == nil {
				return id, nil
			}
		}
		// Fall through: a bad token just gets replaced.
	}

	id := uuid.New()
	token, err := auth.CreateGuestToken(id.String())
	if err != nil {
		return uuid.Nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     guestCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}
