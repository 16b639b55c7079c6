// package models defines the data model for the library mirror
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Kind identifies one of the four library collections.
type Kind string

const (
	KindPlaylist    Kind = "playlist"
	KindSavedTracks Kind = "saved_tracks"
	KindSavedAlbums Kind = "saved_albums"
	KindSavedShows  Kind = "saved_shows"
)

// Kinds lists every collection kind in processing order.
var Kinds = []Kind{KindPlaylist, KindSavedTracks, KindSavedAlbums, KindSavedShows}

func (k Kind) String() string { return string(k) }

// Label returns a human-readable plural name for log lines and prompts.
func (k Kind) Label() string {
	switch k {
	case KindPlaylist:
		return "playlists"
	case KindSavedTracks:
		return "saved tracks"
	case KindSavedAlbums:
		return "saved albums"
	case KindSavedShows:
		return "saved shows"
	default:
		return string(k)
	}
}

// ParseKind converts a string into a [Kind].
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown collection kind %q", s)
}

// Record is a track, album or show reduced to the fields the playlist files carry.
//
// URI is the dedup key and is never empty for a stored record.
type Record struct {
	Title   string `json:"title"`
	Artists string `json:"artists"` // semicolon-joined artist names
	URI     string `json:"uri"`
}

// Collection is an ordered group of records of a single [Kind].
//
// Name, Public, Collaborative and Location only apply to playlist-shaped collections
// (ordinary playlists and the saved tracks pseudo-playlist).
type Collection struct {
	Kind          Kind
	Name          string
	Public        bool
	Collaborative bool
	Location      string // remote playlist URI, written for reference only
	Records       []Record
}

// URIs returns the record URIs in collection order.
func (c *Collection) URIs() []string {
	uris := make([]string, 0, len(c.Records))
	for _, r := range c.Records {
		uris = append(uris, r.URI)
	}
	return uris
}
