package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/repository"
	"github.com/sakif/docuflow/internal/workspace"
)

// AuthHandler manages the Google OAuth login flow and the user session
// cookie. Signing out also drops the user's server-side workspace so the
// next sign-in starts from a fresh collection.
type AuthHandler struct {
	google     *auth.GoogleProvider
	tokens     *auth.TokenService
	profiles   repository.ProfileRepository
	workspaces *workspace.Registry
	logger     *slog.Logger
}

func NewAuthHandler(
	google *auth.GoogleProvider,
	tokens *auth.TokenService,
	profiles repository.ProfileRepository,
	workspaces *workspace.Registry,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		google:     google,
		tokens:     tokens,
		profiles:   profiles,
		workspaces: workspaces,
		logger:     logger,
	}
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/google/login
//
// The random state value lands in a short-lived HttpOnly cookie; the
// callback rejects any request whose state does not match it.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth flow: verify state, exchange
// the code for a Google profile, find or create the matching account, and
// issue the JWT session cookie.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// State is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Google exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	profile, err := h.findOrCreateProfile(r, gUser)
	if err != nil {
		h.logger.Error("auth callback: profile lookup failed",
			slog.String("email", gUser.Email),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	tokenStr, err := h.tokens.Generate(profile.ID)
	if err != nil {
		h.logger.Error("auth callback: token generation failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user authenticated",
		slog.String("userID", profile.ID),
		slog.String("email", profile.Email),
	)

	// HttpOnly keeps the token out of reach of page scripts. Secure should
	// be enabled once the deployment terminates TLS.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int(auth.TokenLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) findOrCreateProfile(r *http.Request, gUser *auth.GoogleUser) (*model.Profile, error) {
	profile, err := h.profiles.GetProfileByEmail(r.Context(), gUser.Email)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	profile = &model.Profile{
		Email:            gUser.Email,
		FullName:         gUser.Name,
		SubscriptionTier: model.TierFree,
	}
	if err := h.profiles.CreateProfile(r.Context(), profile); err != nil {
		return nil, err
	}

	h.logger.Info("new account created via OAuth", slog.String("userID", profile.ID))

	return profile, nil
}

// HandleLogout clears the session cookie and drops the server-side
// workspace for the signed-in user.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.workspaces.Drop(userID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"no_session","message":"authentication required"}`, http.StatusUnauthorized)
		return
	}

	profile, err := h.profiles.GetProfileByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: profile not found", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
