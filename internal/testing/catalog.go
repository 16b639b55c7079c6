package testing

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// FakePlaylist is a remote playlist held by [FakeCatalog].
type FakePlaylist struct {
	services.SpotifySimplePlaylist
	Items []services.SpotifyPlaylistTrack
}

// URIs returns the playlist's track URIs, skipping null entries.
func (p *FakePlaylist) URIs() []string {
	uris := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if item.Track != nil {
			uris = append(uris, item.Track.URI)
		}
	}
	return uris
}

type failure struct {
	after int
	err   error
}

// FakeCatalog is an in-memory [services.Catalog] that pages its listings and records every call.
//
// Batch limits are enforced the way the real API enforces them, so callers that forget to chunk fail.
type FakeCatalog struct {
	mu sync.Mutex

	User        services.SpotifyUser
	Playlists   []*FakePlaylist
	LikedTracks []services.SpotifySavedTrack
	LikedAlbums []services.SpotifySavedAlbum
	LikedShows  []services.SpotifySavedShow
	PageSize    int // defaults to services.PageLimit

	Calls      []string              // method names in call order
	AddBatches []int                 // sizes of AddPlaylistItems calls
	Batches    map[models.Kind][]int // sizes of SaveItems and RemoveSavedItems calls
	Unfollowed []string              // playlist IDs passed to UnfollowPlaylist
	failures   map[string]failure
	counts     map[string]int
	nextID     int
}

// NewFakeCatalog creates an empty catalog for userID.
func NewFakeCatalog(userID string) *FakeCatalog {
	return &FakeCatalog{
		User:     services.SpotifyUser{ID: userID, DisplayName: userID},
		Batches:  map[models.Kind][]int{},
		failures: map[string]failure{},
		counts:   map[string]int{},
	}
}

// FailOn makes method return err once it has succeeded after times.
func (f *FakeCatalog) FailOn(method string, after int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = map[string]failure{}
	}
	f.failures[method] = failure{after: after, err: err}
}

// CallCount returns how many times method was called.
func (f *FakeCatalog) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[method]
}

// MutationCount sums the calls that change remote state.
func (f *FakeCatalog) MutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, m := range []string{"CreatePlaylist", "SetCollaborative", "AddPlaylistItems", "SaveItems", "RemoveSavedItems", "UnfollowPlaylist"} {
		total += f.counts[m]
	}
	return total
}

// AddPlaylist seeds a playlist owned by owner with tracks for uris.
func (f *FakeCatalog) AddPlaylist(name, owner string, uris ...string) *FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addPlaylist(name, owner, false, uris)
}

func (f *FakeCatalog) addPlaylist(name, owner string, public bool, uris []string) *FakePlaylist {
	f.nextID++
	id := fmt.Sprintf("pl%d", f.nextID)
	pl := &FakePlaylist{
		SpotifySimplePlaylist: services.SpotifySimplePlaylist{
			ID:     id,
			Name:   name,
			Owner:  services.Owner{ID: owner},
			Public: public,
			URI:    "spotify:playlist:" + id,
		},
		Items: TrackItems(uris...),
	}
	f.Playlists = append(f.Playlists, pl)
	return pl
}

// Playlist returns the first playlist named name.
func (f *FakeCatalog) Playlist(name string) *FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pl := range f.Playlists {
		if pl.Name == name {
			return pl
		}
	}
	return nil
}

// SavedURIs returns the saved URIs of kind in library order.
func (f *FakeCatalog) SavedURIs(kind models.Kind) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var uris []string
	switch kind {
	case models.KindSavedTracks:
		for _, s := range f.LikedTracks {
			if s.Track != nil {
				uris = append(uris, s.Track.URI)
			}
		}
	case models.KindSavedAlbums:
		for _, s := range f.LikedAlbums {
			if s.Album != nil {
				uris = append(uris, s.Album.URI)
			}
		}
	case models.KindSavedShows:
		for _, s := range f.LikedShows {
			if s.Show != nil {
				uris = append(uris, s.Show.URI)
			}
		}
	}
	return uris
}

// TrackItems builds playlist items for uris. An empty string produces a null track slot.
func TrackItems(uris ...string) []services.SpotifyPlaylistTrack {
	items := make([]services.SpotifyPlaylistTrack, 0, len(uris))
	for _, uri := range uris {
		if uri == "" {
			items = append(items, services.SpotifyPlaylistTrack{})
			continue
		}
		items = append(items, services.SpotifyPlaylistTrack{Track: fakeTrack(uri)})
	}
	return items
}

// SavedTrackItems builds saved tracks for uris.
func SavedTrackItems(uris ...string) []services.SpotifySavedTrack {
	items := make([]services.SpotifySavedTrack, 0, len(uris))
	for _, uri := range uris {
		items = append(items, services.SpotifySavedTrack{Track: fakeTrack(uri)})
	}
	return items
}

// SavedAlbumItems builds saved albums for uris.
func SavedAlbumItems(uris ...string) []services.SpotifySavedAlbum {
	items := make([]services.SpotifySavedAlbum, 0, len(uris))
	for _, uri := range uris {
		items = append(items, services.SpotifySavedAlbum{Album: &services.SpotifyAlbum{
			Name:    "Album " + lastPart(uri),
			Artists: []services.SpotifyArtist{{Name: "Album Artist"}},
			URI:     uri,
		}})
	}
	return items
}

// SavedShowItems builds saved shows for uris.
func SavedShowItems(uris ...string) []services.SpotifySavedShow {
	items := make([]services.SpotifySavedShow, 0, len(uris))
	for _, uri := range uris {
		items = append(items, services.SpotifySavedShow{Show: &services.SpotifyShow{
			Name:      "Show " + lastPart(uri),
			Publisher: "Publisher",
			URI:       uri,
		}})
	}
	return items
}

func fakeTrack(uri string) *services.SpotifyTrack {
	return &services.SpotifyTrack{
		Name:    "Track " + lastPart(uri),
		Artists: []services.SpotifyArtist{{Name: "Artist A"}, {Name: "Artist B"}},
		IsLocal: strings.HasPrefix(uri, "spotify:local:"),
		URI:     uri,
	}
}

func lastPart(uri string) string {
	return uri[strings.LastIndex(uri, ":")+1:]
}

// call records method and returns the configured failure, if due. Callers hold mu.
func (f *FakeCatalog) call(method string) error {
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	if f.Batches == nil {
		f.Batches = map[models.Kind][]int{}
	}
	f.Calls = append(f.Calls, method)
	f.counts[method]++
	if fail, ok := f.failures[method]; ok && f.counts[method] > fail.after {
		return fail.err
	}
	return nil
}

func (f *FakeCatalog) pageSize() int {
	if f.PageSize > 0 {
		return f.PageSize
	}
	return services.PageLimit
}

func paginate[T any](items []T, key, cursor string, size int) (*services.Page[T], error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, key+"?offset="))
		if err != nil || !strings.HasPrefix(cursor, key+"?offset=") || n > len(items) {
			return nil, fmt.Errorf("%w: bad cursor %q", shared.ErrInvalidArgument, cursor)
		}
		offset = n
	}

	end := min(offset+size, len(items))
	page := &services.Page[T]{Items: slices.Clone(items[offset:end]), Total: len(items)}
	if end < len(items) {
		page.Next = fmt.Sprintf("%s?offset=%d", key, end)
	}
	return page, nil
}

func (f *FakeCatalog) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CurrentUser"); err != nil {
		return nil, err
	}
	user := f.User
	return &user, nil
}

func (f *FakeCatalog) UserPlaylists(ctx context.Context, cursor string) (*services.Page[services.SpotifySimplePlaylist], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UserPlaylists"); err != nil {
		return nil, err
	}

	simple := make([]services.SpotifySimplePlaylist, 0, len(f.Playlists))
	for _, pl := range f.Playlists {
		s := pl.SpotifySimplePlaylist
		s.Tracks.Total = len(pl.Items)
		simple = append(simple, s)
	}
	return paginate(simple, "fake://me/playlists", cursor, f.pageSize())
}

func (f *FakeCatalog) PlaylistItems(ctx context.Context, playlistID, cursor string) (*services.Page[services.SpotifyPlaylistTrack], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("PlaylistItems"); err != nil {
		return nil, err
	}

	pl := f.find(playlistID)
	if pl == nil {
		return nil, fmt.Errorf("%w: status 404: playlist %s not found", shared.ErrAPIRequest, playlistID)
	}
	return paginate(pl.Items, "fake://playlists/"+playlistID+"/tracks", cursor, f.pageSize())
}

func (f *FakeCatalog) SavedTracks(ctx context.Context, cursor string) (*services.Page[services.SpotifySavedTrack], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SavedTracks"); err != nil {
		return nil, err
	}
	return paginate(f.LikedTracks, "fake://me/tracks", cursor, f.pageSize())
}

func (f *FakeCatalog) SavedAlbums(ctx context.Context, cursor string) (*services.Page[services.SpotifySavedAlbum], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SavedAlbums"); err != nil {
		return nil, err
	}
	return paginate(f.LikedAlbums, "fake://me/albums", cursor, f.pageSize())
}

func (f *FakeCatalog) SavedShows(ctx context.Context, cursor string) (*services.Page[services.SpotifySavedShow], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SavedShows"); err != nil {
		return nil, err
	}
	return paginate(f.LikedShows, "fake://me/shows", cursor, f.pageSize())
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, userID, name string, public bool) (*services.SpotifySimplePlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreatePlaylist"); err != nil {
		return nil, err
	}
	pl := f.addPlaylist(name, userID, public, nil)
	created := pl.SpotifySimplePlaylist
	return &created, nil
}

func (f *FakeCatalog) SetCollaborative(ctx context.Context, playlistID string, collaborative bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SetCollaborative"); err != nil {
		return err
	}
	pl := f.find(playlistID)
	if pl == nil {
		return fmt.Errorf("%w: status 404: playlist %s not found", shared.ErrAPIRequest, playlistID)
	}
	pl.Collaborative = collaborative
	return nil
}

func (f *FakeCatalog) AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AddPlaylistItems"); err != nil {
		return err
	}
	if len(uris) > services.PlaylistAddLimit {
		return fmt.Errorf("%w: maximum %d URIs per call", shared.ErrInvalidArgument, services.PlaylistAddLimit)
	}
	pl := f.find(playlistID)
	if pl == nil {
		return fmt.Errorf("%w: status 404: playlist %s not found", shared.ErrAPIRequest, playlistID)
	}
	pl.Items = append(pl.Items, TrackItems(uris...)...)
	f.AddBatches = append(f.AddBatches, len(uris))
	return nil
}

func (f *FakeCatalog) SaveItems(ctx context.Context, kind models.Kind, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SaveItems"); err != nil {
		return err
	}
	if len(uris) > services.LibraryLimit {
		return fmt.Errorf("%w: maximum %d IDs per call", shared.ErrInvalidArgument, services.LibraryLimit)
	}
	f.Batches[kind] = append(f.Batches[kind], len(uris))

	for _, uri := range uris {
		switch kind {
		case models.KindSavedTracks:
			if !slices.ContainsFunc(f.LikedTracks, func(s services.SpotifySavedTrack) bool { return s.Track != nil && s.Track.URI == uri }) {
				f.LikedTracks = append(f.LikedTracks, SavedTrackItems(uri)...)
			}
		case models.KindSavedAlbums:
			if !slices.ContainsFunc(f.LikedAlbums, func(s services.SpotifySavedAlbum) bool { return s.Album != nil && s.Album.URI == uri }) {
				f.LikedAlbums = append(f.LikedAlbums, SavedAlbumItems(uri)...)
			}
		case models.KindSavedShows:
			if !slices.ContainsFunc(f.LikedShows, func(s services.SpotifySavedShow) bool { return s.Show != nil && s.Show.URI == uri }) {
				f.LikedShows = append(f.LikedShows, SavedShowItems(uri)...)
			}
		default:
			return fmt.Errorf("%w: %s is not a library collection", shared.ErrInvalidArgument, kind)
		}
	}
	return nil
}

func (f *FakeCatalog) RemoveSavedItems(ctx context.Context, kind models.Kind, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RemoveSavedItems"); err != nil {
		return err
	}
	if len(uris) > services.LibraryLimit {
		return fmt.Errorf("%w: maximum %d IDs per call", shared.ErrInvalidArgument, services.LibraryLimit)
	}
	f.Batches[kind] = append(f.Batches[kind], len(uris))

	switch kind {
	case models.KindSavedTracks:
		f.LikedTracks = slices.DeleteFunc(f.LikedTracks, func(s services.SpotifySavedTrack) bool {
			return s.Track != nil && slices.Contains(uris, s.Track.URI)
		})
	case models.KindSavedAlbums:
		f.LikedAlbums = slices.DeleteFunc(f.LikedAlbums, func(s services.SpotifySavedAlbum) bool {
			return s.Album != nil && slices.Contains(uris, s.Album.URI)
		})
	case models.KindSavedShows:
		f.LikedShows = slices.DeleteFunc(f.LikedShows, func(s services.SpotifySavedShow) bool {
			return s.Show != nil && slices.Contains(uris, s.Show.URI)
		})
	default:
		return fmt.Errorf("%w: %s is not a library collection", shared.ErrInvalidArgument, kind)
	}
	return nil
}

func (f *FakeCatalog) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UnfollowPlaylist"); err != nil {
		return err
	}
	f.Unfollowed = append(f.Unfollowed, playlistID)
	f.Playlists = slices.DeleteFunc(f.Playlists, func(pl *FakePlaylist) bool { return pl.ID == playlistID })
	return nil
}

func (f *FakeCatalog) find(id string) *FakePlaylist {
	for _, pl := range f.Playlists {
		if pl.ID == id {
			return pl
		}
	}
	return nil
}

// ScriptedConfirmer answers prompts from a fixed script and records them. Prompts past the end of the script
// are declined.
type ScriptedConfirmer struct {
	Answers []bool
	Prompts []string
	Err     error
}

func (s *ScriptedConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return false, s.Err
	}
	if len(s.Answers) == 0 {
		return false, nil
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}
