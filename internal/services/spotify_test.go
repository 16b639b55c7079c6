package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

func testCredentials() map[string]string {
	return map[string]string{"client_id": "spx-client", "client_secret": "spx-secret"}
}

// newTokenServer serves the token endpoint and /v1/me, answering every grant with access token "fresh".
func newTokenServer(t *testing.T, grants *[]url.Values) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/token":
			if err := r.ParseForm(); err != nil {
				t.Errorf("bad token request: %v", err)
				return
			}
			*grants = append(*grants, r.PostForm)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","refresh_token":"refresh-2","expires_in":3600}`)
		case "/v1/me":
			fmt.Fprintf(w, `{"id":%q}`, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newServiceFor(t *testing.T, server *httptest.Server) *SpotifyService {
	t.Helper()
	srv, err := NewSpotifyService(testCredentials(), WithBaseURL(server.URL+"/v1"), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.config.Endpoint.TokenURL = server.URL + "/api/token"
	return srv
}

func TestNewSpotifyService(t *testing.T) {
	tests := []struct {
		name     string
		creds    map[string]string
		wantErr  error
		redirect string
	}{
		{name: "default redirect", creds: testCredentials(), redirect: "http://127.0.0.1:3000/callback"},
		{
			name:     "custom redirect",
			creds:    map[string]string{"client_id": "a", "client_secret": "b", "redirect_uri": "http://localhost:8888/spx"},
			redirect: "http://localhost:8888/spx",
		},
		{name: "missing client id", creds: map[string]string{"client_secret": "b"}, wantErr: shared.ErrMissingCredentials},
		{name: "missing client secret", creds: map[string]string{"client_id": "a"}, wantErr: shared.ErrMissingCredentials},
		{name: "empty client id", creds: map[string]string{"client_id": "", "client_secret": "b"}, wantErr: shared.ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewSpotifyService(tt.creds)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.config.RedirectURL != tt.redirect {
				t.Errorf("expected redirect %s, got %s", tt.redirect, srv.config.RedirectURL)
			}
			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default API root, got %s", srv.baseURL)
			}
		})
	}
}

func TestSpotifyOptions(t *testing.T) {
	t.Run("WithRateLimit", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials(), WithRateLimit(5))
		if srv.limiter == nil || srv.limiter.Limit() != rate.Limit(5) || srv.limiter.Burst() != 1 {
			t.Errorf("expected 5 rps limiter with burst 1, got %+v", srv.limiter)
		}

		srv, _ = NewSpotifyService(testCredentials(), WithRateLimit(5), WithRateLimit(0))
		if srv.limiter != nil {
			t.Error("expected zero to disable pacing")
		}
	})

	t.Run("WithTimeout keeps the transport", func(t *testing.T) {
		transport := &http.Transport{}
		srv, _ := NewSpotifyService(testCredentials(),
			WithHTTPClient(&http.Client{Transport: transport}), WithTimeout(7*time.Second))
		if srv.baseClient.Timeout != 7*time.Second {
			t.Errorf("expected 7s timeout, got %s", srv.baseClient.Timeout)
		}
		if srv.baseClient.Transport != transport {
			t.Error("expected transport to be kept")
		}
	})

	t.Run("WithTimeout zero is ignored", func(t *testing.T) {
		client := &http.Client{}
		srv, _ := NewSpotifyService(testCredentials(), WithHTTPClient(client), WithTimeout(0))
		if srv.baseClient != client {
			t.Error("expected client unchanged")
		}
	})

	t.Run("WithBaseURL trims slash", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials(), WithBaseURL("http://localhost:9/v1/"))
		if srv.baseURL != "http://localhost:9/v1" {
			t.Errorf("unexpected base %s", srv.baseURL)
		}
	})
}

func TestResolve(t *testing.T) {
	srv, _ := NewSpotifyService(testCredentials())

	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "/me/tracks?limit=50", want: "https://api.spotify.com/v1/me/tracks?limit=50"},
		{
			endpoint: "https://api.spotify.com/v1/me/tracks?offset=50&limit=50",
			want:     "https://api.spotify.com/v1/me/tracks?offset=50&limit=50",
		},
		{endpoint: "https://example.com/v1/me/tracks", wantErr: true},
		{endpoint: "https://api.spotify.com/v1evil/me", wantErr: true},
		{endpoint: "http://api.spotify.com/v1/me", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := srv.resolve(tt.endpoint)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestSpotifyAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("auth URL requests library scopes", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials())
		u, err := url.Parse(srv.GetAuthURL("state-123"))
		if err != nil {
			t.Fatalf("invalid auth URL: %v", err)
		}
		q := u.Query()
		if u.Host != "accounts.spotify.com" || q.Get("client_id") != "spx-client" || q.Get("state") != "state-123" {
			t.Errorf("unexpected auth URL %s", u)
		}
		if q.Get("show_dialog") != "true" {
			t.Error("expected show_dialog")
		}
		if got := strings.Fields(q.Get("scope")); len(got) != len(Scopes) {
			t.Errorf("expected scopes %v, got %v", Scopes, got)
		}
	})

	t.Run("auth code is exchanged", func(t *testing.T) {
		var grants []url.Values
		srv := newServiceFor(t, newTokenServer(t, &grants))

		if err := srv.Authenticate(ctx, map[string]string{"auth_code": "code-1"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(grants) != 1 || grants[0].Get("grant_type") != "authorization_code" || grants[0].Get("code") != "code-1" {
			t.Errorf("unexpected grants %v", grants)
		}
		if srv.token == nil || srv.token.AccessToken != "fresh" {
			t.Errorf("expected exchanged token, got %+v", srv.token)
		}

		user, err := srv.CurrentUser(ctx)
		if err != nil || user.ID != "fresh" {
			t.Errorf("expected request with exchanged token, got %+v (%v)", user, err)
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
		}))
		t.Cleanup(server.Close)
		srv := newServiceFor(t, server)

		err := srv.Authenticate(ctx, map[string]string{"auth_code": "stale"})
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials())
		if err := srv.Authenticate(ctx, map[string]string{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials())
		for _, token := range []*oauth2.Token{nil, {}} {
			if err := srv.OAuthenticate(ctx, token); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		}
	})

	t.Run("expired token is refreshed and reported", func(t *testing.T) {
		var grants []url.Values
		srv := newServiceFor(t, newTokenServer(t, &grants))

		var refreshed []*oauth2.Token
		srv.SetTokenRefreshCallback(func(token *oauth2.Token) { refreshed = append(refreshed, token) })

		expired := &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Hour)}
		if err := srv.OAuthenticate(ctx, expired); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for range 2 {
			user, err := srv.CurrentUser(ctx)
			if err != nil || user.ID != "fresh" {
				t.Fatalf("expected refreshed token on request, got %+v (%v)", user, err)
			}
		}
		if len(grants) != 1 || grants[0].Get("grant_type") != "refresh_token" || grants[0].Get("refresh_token") != "refresh-1" {
			t.Errorf("expected one refresh grant, got %v", grants)
		}
		if len(refreshed) != 1 || refreshed[0].AccessToken != "fresh" || refreshed[0].RefreshToken != "refresh-2" {
			t.Errorf("expected callback once with the new token, got %v", refreshed)
		}
	})

	t.Run("static token without refresh token", func(t *testing.T) {
		var grants []url.Values
		srv := newServiceFor(t, newTokenServer(t, &grants))
		srv.SetTokenRefreshCallback(func(*oauth2.Token) { t.Error("unexpected refresh callback") })

		if err := srv.OAuthenticate(ctx, &oauth2.Token{AccessToken: "static"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		user, err := srv.CurrentUser(ctx)
		if err != nil || user.ID != "static" {
			t.Errorf("expected static token, got %+v (%v)", user, err)
		}
		if len(grants) != 0 {
			t.Errorf("expected no token requests, got %v", grants)
		}
	})

	t.Run("satisfies interfaces", func(t *testing.T) {
		var _ Catalog = (*SpotifyService)(nil)
		var _ OAuthService = (*SpotifyService)(nil)
	})
}
