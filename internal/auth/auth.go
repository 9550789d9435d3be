// Package auth restricts the dashboard to Google accounts of one domain.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ignite/funnel-monitor/internal/config"
	"github.com/ignite/funnel-monitor/internal/pkg/httpretry"
	"github.com/ignite/funnel-monitor/internal/pkg/httputil"
	"github.com/ignite/funnel-monitor/internal/pkg/logger"
)

const (
	stateCookie        = "oauth_state"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleUserInfo represents the user info returned by Google
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HD            string `json:"hd"` // Hosted domain (Workspace domain)
}

// AuthManager handles Google OAuth authentication
type AuthManager struct {
	config       config.AuthConfig
	oauth2Config *oauth2.Config
	store        SessionStore
	client       httpretry.HTTPDoer
	userInfoURL  string
	now          func() time.Time
	log          *logger.Logger
}

// NewAuthManager creates a manager whose callback lives under baseURL.
// store defaults to a MemoryStore.
func NewAuthManager(cfg config.AuthConfig, baseURL string, store SessionStore) *AuthManager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &AuthManager{
		config: cfg,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  strings.TrimRight(baseURL, "/") + "/auth/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		store:       store,
		client:      httpretry.NewRetryClient(nil, 2),
		userInfoURL: defaultUserInfoURL,
		now:         time.Now,
		log:         logger.New("auth"),
	}
}

// SetEndpoints points the manager at a different OAuth provider.
func (am *AuthManager) SetEndpoints(endpoint oauth2.Endpoint, userInfoURL string) {
	am.oauth2Config.Endpoint = endpoint
	am.userInfoURL = userInfoURL
}

// SetHTTPClient replaces the client used for userinfo and credential checks.
func (am *AuthManager) SetHTTPClient(c httpretry.HTTPDoer) {
	am.client = c
}

// generateState creates a random state string for OAuth
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (am *AuthManager) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}

// HandleLogin initiates the Google OAuth flow
func (am *AuthManager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		httputil.InternalError(w, fmt.Errorf("generate state: %w", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	var opts []oauth2.AuthCodeOption
	opts = append(opts, oauth2.AccessTypeOnline)
	if am.config.AllowedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", am.config.AllowedDomain))
	}
	http.Redirect(w, r, am.oauth2Config.AuthCodeURL(state, opts...), http.StatusTemporaryRedirect)
}

// HandleCallback processes the OAuth callback from Google
func (am *AuthManager) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		am.log.Warn("oauth state mismatch")
		am.redirectError(w, r, "invalid_state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		am.log.Warn("provider returned error", "error", errMsg)
		am.redirectError(w, r, errMsg)
		return
	}

	token, err := am.oauth2Config.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		am.log.Warn("code exchange failed", "error", err)
		am.redirectError(w, r, "exchange_failed")
		return
	}

	userInfo, err := am.getUserInfo(ctx, token.AccessToken)
	if err != nil {
		am.log.Warn("userinfo fetch failed", "error", err)
		am.redirectError(w, r, "userinfo_failed")
		return
	}

	if !am.domainAllowed(userInfo.Email) {
		am.log.Warn("domain not allowed", "email", userInfo.Email, "allowed_domain", am.config.AllowedDomain)
		am.redirectError(w, r, "domain_not_allowed")
		return
	}

	sessionID := uuid.New().String()
	now := am.now()
	session := &Session{
		UserID:    userInfo.ID,
		Email:     userInfo.Email,
		Name:      userInfo.Name,
		Picture:   userInfo.Picture,
		Domain:    userInfo.HD,
		CreatedAt: now,
		ExpiresAt: now.Add(am.config.SessionTTL()),
	}
	if err := am.store.Save(ctx, sessionID, session); err != nil {
		am.log.Error("save session failed", "error", err)
		am.redirectError(w, r, "session_failed")
		return
	}

	am.log.Info("user logged in", "email", userInfo.Email)

	http.SetCookie(w, &http.Cookie{
		Name:     am.config.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   am.config.CookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// domainAllowed requires the email's domain to equal the allowed domain.
// An empty allowed domain admits any account.
func (am *AuthManager) domainAllowed(email string) bool {
	if am.config.AllowedDomain == "" {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.EqualFold(email[at+1:], am.config.AllowedDomain)
}

// HandleLogout ends the session
func (am *AuthManager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(am.config.CookieName); err == nil {
		if err := am.store.Delete(r.Context(), cookie.Value); err != nil {
			am.log.Warn("delete session failed", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{Name: am.config.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// HandleUserInfo returns the current user's info as JSON
func (am *AuthManager) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	session := am.GetSession(r)
	if session == nil {
		httputil.JSON(w, http.StatusUnauthorized, map[string]interface{}{"authenticated": false})
		return
	}

	httputil.OK(w, map[string]interface{}{
		"authenticated": true,
		"user": map[string]string{
			"id":      session.UserID,
			"email":   session.Email,
			"name":    session.Name,
			"picture": session.Picture,
			"domain":  session.Domain,
		},
		"expires_at": session.ExpiresAt,
	})
}

// GetSession returns the session for the current request, or nil if not authenticated
func (am *AuthManager) GetSession(r *http.Request) *Session {
	cookie, err := r.Cookie(am.config.CookieName)
	if err != nil {
		return nil
	}
	session, err := am.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			am.log.Warn("read session failed", "error", err)
		}
		return nil
	}
	return session
}

// RequireAuth rejects unauthenticated /api requests with 401. Auth and
// health endpoints stay open; other paths fall through so the frontend
// can render its login page.
func (am *AuthManager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/auth/") || strings.HasPrefix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}
		if am.GetSession(r) == nil && strings.HasPrefix(r.URL.Path, "/api/") {
			httputil.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getUserInfo fetches the user's profile with the access token.
func (am *AuthManager) getUserInfo(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, am.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := am.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, string(body))
	}

	var userInfo GoogleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("parse user info: %w", err)
	}
	return &userInfo, nil
}

// ValidateCredentials probes the token endpoint with a dummy code so that
// rotated client credentials fail at boot instead of at first login.
// Google answers invalid_grant for a good client and invalid_client for a
// bad one.
func (am *AuthManager) ValidateCredentials(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {"validation_probe"},
		"client_id":     {am.oauth2Config.ClientID},
		"client_secret": {am.oauth2Config.ClientSecret},
		"redirect_uri":  {am.oauth2Config.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, am.oauth2Config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := am.client.Do(req)
	if err != nil {
		return fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	switch {
	case strings.Contains(text, "invalid_grant"),
		strings.Contains(text, "invalid_request"),
		strings.Contains(text, "redirect_uri_mismatch"):
		return nil
	case strings.Contains(text, "invalid_client"):
		return errors.New("google oauth client id or secret rejected")
	}
	return fmt.Errorf("unexpected token endpoint response (HTTP %d): %s", resp.StatusCode, text)
}
