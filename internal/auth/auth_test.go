package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ignite/funnel-monitor/internal/config"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:            true,
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		AllowedDomain:      "ignite.com",
		CookieName:         "funnel_session",
		CookieMaxAge:       3600,
	}
}

// fakeProvider serves the token and userinfo endpoints.
func fakeProvider(t *testing.T, email string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") == "validation_probe" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			if r.Form.Get("client_secret") == "client-secret" {
				w.Write([]byte(`{"error":"invalid_grant"}`))
			} else {
				w.Write([]byte(`{"error":"invalid_client"}`))
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(GoogleUserInfo{ID: "u1", Email: email, VerifiedEmail: true, Name: "Asha", HD: "ignite.com"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, email string) (*AuthManager, *MemoryStore) {
	t.Helper()
	srv := fakeProvider(t, email)
	store := NewMemoryStore()
	am := NewAuthManager(testConfig(), "http://localhost:8080/", store)
	am.SetEndpoints(oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, srv.URL+"/userinfo")
	am.SetHTTPClient(srv.Client())
	return am, store
}

func callback(am *AuthManager, state, cookieState string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
	rec := httptest.NewRecorder()
	am.HandleCallback(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestHandleLogin(t *testing.T) {
	am, _ := newTestManager(t, "asha@ignite.com")
	rec := httptest.NewRecorder()
	am.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "ignite.com", loc.Query().Get("hd"))
	assert.Equal(t, "http://localhost:8080/auth/callback", loc.Query().Get("redirect_uri"))

	state := sessionCookie(rec, stateCookie)
	require.NotNil(t, state)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
}

func TestHandleCallback_CreatesSession(t *testing.T) {
	am, store := newTestManager(t, "asha@ignite.com")

	rec := callback(am, "s1", "s1")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	c := sessionCookie(rec, "funnel_session")
	require.NotNil(t, c)
	assert.Equal(t, 1, store.Len())

	req := httptest.NewRequest(http.MethodGet, "/api/funnel", nil)
	req.AddCookie(c)
	s := am.GetSession(req)
	require.NotNil(t, s)
	assert.Equal(t, "asha@ignite.com", s.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)
}

func TestHandleCallback_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		state       string
		cookieState string
		want        string
	}{
		{"state mismatch", "asha@ignite.com", "s1", "other", "invalid_state"},
		{"missing state", "asha@ignite.com", "", "", "invalid_state"},
		{"foreign domain", "asha@gmail.com", "s1", "s1", "domain_not_allowed"},
		{"lookalike domain", "asha@notignite.com", "s1", "s1", "domain_not_allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			am, store := newTestManager(t, tt.email)
			rec := callback(am, tt.state, tt.cookieState)
			assert.Equal(t, "/?error="+tt.want, rec.Header().Get("Location"))
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestRequireAuth(t *testing.T) {
	am, store := newTestManager(t, "asha@ignite.com")
	require.NoError(t, store.Save(context.Background(), "good", &Session{Email: "a@ignite.com", ExpiresAt: time.Now().Add(time.Hour)}))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := am.RequireAuth(next)

	tests := []struct {
		path   string
		cookie string
		want   int
	}{
		{"/api/funnel", "", http.StatusUnauthorized},
		{"/api/funnel", "bogus", http.StatusUnauthorized},
		{"/api/funnel", "good", http.StatusNoContent},
		{"/health/ready", "", http.StatusNoContent},
		{"/auth/login", "", http.StatusNoContent},
		{"/", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.cookie, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "funnel_session", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleLogoutAndUserInfo(t *testing.T) {
	am, store := newTestManager(t, "asha@ignite.com")
	require.NoError(t, store.Save(context.Background(), "sid", &Session{Email: "asha@ignite.com", ExpiresAt: time.Now().Add(time.Hour)}))

	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: "funnel_session", Value: "sid"})
	rec := httptest.NewRecorder()
	am.HandleUserInfo(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)

	rec = httptest.NewRecorder()
	am.HandleLogout(rec, req)
	assert.Equal(t, 0, store.Len())

	rec = httptest.NewRecorder()
	am.HandleUserInfo(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateCredentials(t *testing.T) {
	am, _ := newTestManager(t, "asha@ignite.com")
	assert.NoError(t, am.ValidateCredentials(context.Background()))

	am.oauth2Config.ClientSecret = "rotated"
	err := am.ValidateCredentials(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "rejected"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", &Session{ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, store.Save(ctx, "b", &Session{ExpiresAt: now.Add(time.Hour)}))

	now = now.Add(10 * time.Minute)
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, "c", &Session{ExpiresAt: now.Add(-time.Second)}))
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "funnel:")
	ctx := context.Background()
	s := &Session{UserID: "u1", Email: "asha@ignite.com", ExpiresAt: time.Now().Add(30 * time.Minute)}

	require.NoError(t, store.Save(ctx, "sid", s))
	assert.True(t, mr.Exists("funnel:session:sid"))
	ttl := mr.TTL("funnel:session:sid")
	assert.True(t, ttl > 29*time.Minute && ttl <= 30*time.Minute)

	got, err := store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, store.Delete(ctx, "sid"))
	_, err = store.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, "old", &Session{ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.False(t, mr.Exists("funnel:session:old"))
}
