package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"visualroutine/internal/security"
)

const (
	oauthStateTTL        = 10 * time.Minute
	oauthExchangeTimeout = 10 * time.Second
)

var errUserInfo = errors.New("failed to fetch OAuth user info")

// OAuthProvider is a sign-in provider. UserInfoURL must return a JSON profile carrying the
// account id as "sub" (OpenID Connect) or "id" (Google v2), plus "email" and "name".
type OAuthProvider struct {
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

type oauthProfile struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (p oauthProfile) subject() string {
	if p.Sub != "" {
		return p.Sub
	}
	return p.ID
}

// provider resolves the {provider} path segment, writing a 400 when it is unusable
func (h *AuthHandler) provider(w http.ResponseWriter, r *http.Request) (string, OAuthProvider, bool) {
	key := r.PathValue("provider")
	p, ok := h.oauthProviders[key]
	if !ok || p.Config == nil || p.Config.ClientID == "" || p.Config.ClientSecret == "" {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return "", OAuthProvider{}, false
	}
	return key, p, true
}

// StartOAuth redirects to the provider's consent page with a signed state cookie
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	key, p, ok := h.provider(w, r)
	if !ok {
		return
	}

	state := h.states.NewState()
	http.SetCookie(w, security.StateCookie(r, OAuthStateCookieName, state, oauthStateTTL))

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for k, v := range p.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	http.Redirect(w, r, h.redirectConfig(r, key, p).AuthCodeURL(state, opts...), http.StatusFound)
}

// OAuthCallback exchanges the code, signs the caregiver in and returns a bearer token
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	key, p, ok := h.provider(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}
	if !h.stateMatches(r, query.Get("state")) {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}
	http.SetCookie(w, security.DeleteCookie(r, OAuthStateCookieName))

	ctx, cancel := context.WithTimeout(r.Context(), oauthExchangeTimeout)
	defer cancel()

	token, err := h.redirectConfig(r, key, p).Exchange(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to exchange OAuth code", "OAuth exchange failed", err)
		return
	}

	profile, err := fetchProfile(ctx, p, token)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, errUserInfo.Error(), "OAuth profile fetch failed", err)
		return
	}

	session, user, err := h.authService.OAuthLogin(r.Context(), key, profile.subject(), profile.Email, profile.Name)
	if err != nil {
		respondWithServiceError(w, "Error completing OAuth login", err, nil)
		return
	}

	log.Printf("OAuth login via %s for user %s", key, user.ID)
	respondJSON(w, http.StatusOK, newSessionResponse(session, user))
}

func (h *AuthHandler) stateMatches(r *http.Request, state string) bool {
	cookie, err := r.Cookie(OAuthStateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return cookie.Value == state && h.states.Valid(state)
}

// redirectConfig copies the provider config with the callback URL for this request
func (h *AuthHandler) redirectConfig(r *http.Request, key string, p OAuthProvider) *oauth2.Config {
	base := strings.TrimSpace(h.oauthRedirectBaseURL)
	if base == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}

	cfg := *p.Config
	cfg.RedirectURL = strings.TrimRight(base, "/") + "/auth/" + key + "/callback"
	return &cfg
}

func fetchProfile(ctx context.Context, p OAuthProvider, token *oauth2.Token) (oauthProfile, error) {
	resp, err := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)).Get(p.UserInfoURL)
	if err != nil {
		return oauthProfile{}, fmt.Errorf("%w: %v", errUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthProfile{}, fmt.Errorf("%w: status %d", errUserInfo, resp.StatusCode)
	}

	var profile oauthProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return oauthProfile{}, fmt.Errorf("%w: %v", errUserInfo, err)
	}
	if profile.subject() == "" {
		return oauthProfile{}, fmt.Errorf("%w: profile has no account id", errUserInfo)
	}
	return profile, nil
}
