// package services defines interface Catalog for interacting with the Spotify Web API
package services

import (
	"context"

	"github.com/desertthunder/spx/internal/models"
	"golang.org/x/oauth2"
)

const (
	// PageLimit is the largest page the read endpoints accept.
	PageLimit = 50
	// PlaylistAddLimit is the most URIs one add-items call accepts.
	PlaylistAddLimit = 100
	// LibraryLimit is the most IDs one save/remove call on the user's library accepts.
	LibraryLimit = 50
)

// Page is one page of a cursor-based listing. Next is the continuation cursor and is empty on the last page.
type Page[T any] struct {
	Items []T
	Next  string
	Total int
}

// Catalog is the remote library the sync engine reads from and writes to.
//
// Every listing takes a cursor: the empty cursor requests the first page, any other value is the Next field of a previous [Page].
type Catalog interface {
	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// UserPlaylists lists playlists owned or followed by the current user.
	UserPlaylists(ctx context.Context, cursor string) (*Page[SpotifySimplePlaylist], error)

	// PlaylistItems lists the items of one playlist. Items may carry a nil track.
	PlaylistItems(ctx context.Context, playlistID, cursor string) (*Page[SpotifyPlaylistTrack], error)

	// SavedTracks lists the user's saved (liked) tracks.
	SavedTracks(ctx context.Context, cursor string) (*Page[SpotifySavedTrack], error)

	// SavedAlbums lists the user's saved albums.
	SavedAlbums(ctx context.Context, cursor string) (*Page[SpotifySavedAlbum], error)

	// SavedShows lists the user's saved podcasts.
	SavedShows(ctx context.Context, cursor string) (*Page[SpotifySavedShow], error)

	// CreatePlaylist creates a playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name string, public bool) (*SpotifySimplePlaylist, error)

	// SetCollaborative changes the collaborative flag of a playlist.
	SetCollaborative(ctx context.Context, playlistID string, collaborative bool) error

	// AddPlaylistItems appends up to [PlaylistAddLimit] URIs to a playlist.
	AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error

	// SaveItems adds up to [LibraryLimit] tracks, albums or shows to the user's library.
	SaveItems(ctx context.Context, kind models.Kind, uris []string) error

	// RemoveSavedItems removes up to [LibraryLimit] tracks, albums or shows from the user's library.
	RemoveSavedItems(ctx context.Context, kind models.Kind, uris []string) error

	// UnfollowPlaylist removes a playlist from the user's library. For owned playlists this is how deletion works.
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// OAuthService is implemented by catalogs that authenticate with an OAuth2 authorization code flow.
type OAuthService interface {
	// GetAuthURL returns the URL the user visits to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the client configuration used for the code exchange.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs token, refreshing it as needed.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
