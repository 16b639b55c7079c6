// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// playlistItemFields trims playlist item pages down to what the normalizer reads.
	playlistItemFields = "items(track(name,uri,artists(name))),next,total"
)

// Scopes are the OAuth2 scopes needed to read and modify the whole library.
var Scopes = []string{
	"playlist-read-collaborative",
	"playlist-read-private",
	"user-library-read",
	"user-library-modify",
	"playlist-modify-private",
	"playlist-modify-public",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
	URI         string `json:"uri"`
}

// SpotifyTrack represents a Spotify track (or episode, inside playlists).
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	IsLocal bool            `json:"is_local"`
	URI     string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	URI         string          `json:"uri"`
}

// SpotifyShow represents a Spotify podcast.
type SpotifyShow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Publisher string `json:"publisher"`
	URI       string `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Owner         Owner               `json:"owner"`
	Public        bool                `json:"public"`
	Collaborative bool                `json:"collaborative"`
	Tracks        simplePlaylistTrack `json:"tracks"`
	URI           string              `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for unavailable entries.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string        `json:"added_at"`
	Album   *SpotifyAlbum `json:"album"`
}

// SpotifySavedShow represents a show saved in the user's library.
type SpotifySavedShow struct {
	AddedAt string       `json:"added_at"`
	Show    *SpotifyShow `json:"show"`
}

// paginated is the envelope shared by every Spotify paging object.
type paginated[T any] struct {
	Items []T     `json:"items"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

func (p paginated[T]) page() *Page[T] {
	page := &Page[T]{Items: p.Items, Total: p.Total}
	if p.Next != nil {
		page.Next = *p.Next
	}
	return page
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements the [Catalog] interface for Spotify API interactions.
// Uses [oauth2] for authentication and paces requests with a [rate.Limiter].
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	onTokenRefresh func(*oauth2.Token)
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the service at a different API root.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables pacing.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHTTPClient sets the transport the authenticated client is built on.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithTimeout sets a per-request timeout on the underlying client.
func WithTimeout(d time.Duration) SpotifyOption {
	return func(s *SpotifyService) {
		if d > 0 {
			s.baseClient = &http.Client{Transport: s.baseClient.Transport, Timeout: d}
		}
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{config: config, baseClient: &http.Client{}, baseURL: spotifyBaseURL}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(s.clientContext(ctx), authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate installs token. Tokens with a refresh token are refreshed transparently and every new token is
// reported to the callback set with [SpotifyService.SetTokenRefreshCallback].
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}

	ctx = s.clientContext(ctx)
	var src oauth2.TokenSource
	if token.RefreshToken != "" {
		src = s.config.TokenSource(ctx, token)
	} else {
		src = oauth2.StaticTokenSource(token)
	}

	s.token = token
	s.httpClient = oauth2.NewClient(ctx, &refreshableTokenSource{
		source:   oauth2.ReuseTokenSource(token, src),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	})
	return nil
}

// SetTokenRefreshCallback registers fn to receive refreshed tokens. Must be called before authenticating.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// GetOAuthConfig returns the OAuth2 client configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// resolve turns an endpoint or a paging cursor into an absolute URL.
//
// Cursors are absolute URLs handed out by the API; anything outside the API root is rejected
// so the bearer token is never sent elsewhere.
func (s *SpotifyService) resolve(endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if !strings.HasPrefix(endpoint, s.baseURL+"/") {
			return "", fmt.Errorf("%w: cursor outside API root: %s", shared.ErrInvalidArgument, endpoint)
		}
		return endpoint, nil
	}
	return s.baseURL + endpoint, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL, err := s.resolve(endpoint)
	if err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s %s", shared.ErrTokenExpired, method, endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr apiError
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: rate limited (retry after %ss)", shared.ErrAPIRequest, resp.Header.Get("Retry-After"))
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
}

// getPage requests the first page of endpoint, or cursor when set.
func getPage[T any](ctx context.Context, s *SpotifyService, endpoint, cursor string) (*Page[T], error) {
	if cursor != "" {
		endpoint = cursor
	}

	var response paginated[T]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response.page(), nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves a page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, cursor string) (*Page[SpotifySimplePlaylist], error) {
	return getPage[SpotifySimplePlaylist](ctx, s, fmt.Sprintf("/me/playlists?limit=%d", PageLimit), cursor)
}

// PlaylistItems retrieves a page of a playlist's items.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID, cursor string) (*Page[SpotifyPlaylistTrack], error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(PageLimit))
	query.Set("fields", playlistItemFields)
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), query.Encode())
	return getPage[SpotifyPlaylistTrack](ctx, s, endpoint, cursor)
}

// SavedTracks retrieves a page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, cursor string) (*Page[SpotifySavedTrack], error) {
	return getPage[SpotifySavedTrack](ctx, s, fmt.Sprintf("/me/tracks?limit=%d", PageLimit), cursor)
}

// SavedAlbums retrieves a page of the user's saved albums.
func (s *SpotifyService) SavedAlbums(ctx context.Context, cursor string) (*Page[SpotifySavedAlbum], error) {
	return getPage[SpotifySavedAlbum](ctx, s, fmt.Sprintf("/me/albums?limit=%d", PageLimit), cursor)
}

// SavedShows retrieves a page of the user's saved shows.
func (s *SpotifyService) SavedShows(ctx context.Context, cursor string) (*Page[SpotifySavedShow], error) {
	return getPage[SpotifySavedShow](ctx, s, fmt.Sprintf("/me/shows?limit=%d", PageLimit), cursor)
}

// CreatePlaylist creates a new playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name string, public bool) (*SpotifySimplePlaylist, error) {
	body := map[string]any{"name": name, "public": public}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var playlist SpotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// SetCollaborative updates the collaborative flag of a playlist.
func (s *SpotifyService) SetCollaborative(ctx context.Context, playlistID string, collaborative bool) error {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, map[string]any{"collaborative": collaborative}, nil)
}

// AddPlaylistItems appends uris to a playlist.
func (s *SpotifyService) AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > PlaylistAddLimit {
		return fmt.Errorf("%w: maximum %d URIs per call", shared.ErrInvalidArgument, PlaylistAddLimit)
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}

// SaveItems adds tracks, albums or shows to the user's library.
func (s *SpotifyService) SaveItems(ctx context.Context, kind models.Kind, uris []string) error {
	endpoint, err := libraryEndpoint(kind, uris)
	if err != nil || endpoint == "" {
		return err
	}
	return s.doRequest(ctx, http.MethodPut, endpoint, nil, nil)
}

// RemoveSavedItems removes tracks, albums or shows from the user's library.
func (s *SpotifyService) RemoveSavedItems(ctx context.Context, kind models.Kind, uris []string) error {
	endpoint, err := libraryEndpoint(kind, uris)
	if err != nil || endpoint == "" {
		return err
	}
	return s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// UnfollowPlaylist removes a playlist from the current user's library.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// libraryEndpoint builds the /me/{tracks,albums,shows}?ids= endpoint. Returns "" for an empty batch.
func libraryEndpoint(kind models.Kind, uris []string) (string, error) {
	var resource string
	switch kind {
	case models.KindSavedTracks:
		resource = "tracks"
	case models.KindSavedAlbums:
		resource = "albums"
	case models.KindSavedShows:
		resource = "shows"
	default:
		return "", fmt.Errorf("%w: %s is not a library collection", shared.ErrInvalidArgument, kind)
	}

	if len(uris) == 0 {
		return "", nil
	}
	if len(uris) > LibraryLimit {
		return "", fmt.Errorf("%w: maximum %d IDs per call", shared.ErrInvalidArgument, LibraryLimit)
	}

	ids := make([]string, 0, len(uris))
	for _, uri := range uris {
		id, err := IDFromURI(uri)
		if err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	return fmt.Sprintf("/me/%s?ids=%s", resource, url.QueryEscape(strings.Join(ids, ","))), nil
}

// IDFromURI extracts the base-62 ID from a "spotify:<type>:<id>" URI. Bare IDs are returned unchanged.
func IDFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, "spotify:") {
		if uri == "" || strings.Contains(uri, ":") {
			return "", fmt.Errorf("%w: not a Spotify URI: %q", shared.ErrInvalidArgument, uri)
		}
		return uri, nil
	}

	parts := strings.Split(uri, ":")
	id := parts[len(parts)-1]
	if len(parts) != 3 || id == "" {
		return "", fmt.Errorf("%w: not a Spotify URI: %q", shared.ErrInvalidArgument, uri)
	}
	return id, nil
}
