package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/xspf"
)

// LibraryEngine exports the library to XSPF files and imports it back.
//
// Import only ever adds: entries already present remotely are skipped, nothing is removed or reordered.
type LibraryEngine struct {
	run
}

// NewLibraryEngine creates a [LibraryEngine] for catalog. A nil logger discards output.
func NewLibraryEngine(catalog services.Catalog, logger *log.Logger, opts ...Option) *LibraryEngine {
	return &LibraryEngine{run: newRun(catalog, logger, opts...)}
}

// ExportAll writes playlists, the saved tracks pseudo-playlist, saved albums and saved shows into dir,
// creating it if needed.
func (e *LibraryEngine) ExportAll(ctx context.Context, dir string) (*Report, error) {
	report := e.newReport(models.OpExport)
	if err := ensureDir(dir); err != nil {
		return report, err
	}

	for _, kind := range []models.Kind{models.KindPlaylist, models.KindSavedAlbums, models.KindSavedShows} {
		if err := e.export(ctx, kind, dir, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Export writes a single collection kind into dir. The playlist kind includes the saved tracks pseudo-playlist.
func (e *LibraryEngine) Export(ctx context.Context, kind models.Kind, dir string) (*Report, error) {
	report := e.newReport(models.OpExport)
	if err := ensureDir(dir); err != nil {
		return report, err
	}
	return report, e.export(ctx, kind, dir, report)
}

func (e *LibraryEngine) export(ctx context.Context, kind models.Kind, dir string, report *Report) error {
	if kind == models.KindPlaylist {
		return e.exportPlaylists(ctx, dir, report)
	}

	records, err := e.savedRecords(ctx, kind)
	if err != nil {
		return e.fail(ctx, report, UnitResult{Kind: kind}, err)
	}

	c := models.Collection{Kind: kind, Records: records}
	if kind == models.KindSavedTracks {
		c.Name = xspf.SavedTracksTitle
	}
	return e.write(ctx, dir, c, report)
}

func (e *LibraryEngine) exportPlaylists(ctx context.Context, dir string, report *Report) error {
	playlists, err := Drain[services.SpotifySimplePlaylist](ctx, e.catalog.UserPlaylists)
	if err != nil {
		return e.fail(ctx, report, UnitResult{Kind: models.KindPlaylist}, err)
	}

	written := make(map[string]string, len(playlists))
	for _, pl := range playlists {
		items, err := e.playlistItems(ctx, pl.ID)
		if err != nil {
			return e.fail(ctx, report, UnitResult{Kind: models.KindPlaylist, Name: pl.Name}, err)
		}

		c := models.Collection{
			Kind:          models.KindPlaylist,
			Name:          pl.Name,
			Public:        pl.Public,
			Collaborative: pl.Collaborative,
			Location:      pl.URI,
			Records:       NormalizeTracks(items),
		}

		name := xspf.FileName(c)
		if other, ok := written[name]; ok {
			e.logger.Warn("playlist file overwritten by a playlist with the same name", "playlist", pl.Name, "previous", other)
		}
		written[name] = pl.URI

		if err := e.write(ctx, dir, c, report); err != nil {
			return err
		}
	}
	return e.export(ctx, models.KindSavedTracks, dir, report)
}

func (e *LibraryEngine) write(ctx context.Context, dir string, c models.Collection, report *Report) error {
	unit := UnitResult{Kind: c.Kind, Count: len(c.Records)}
	if c.Kind == models.KindPlaylist {
		unit.Name = c.Name
	}

	path, err := xspf.Write(dir, c)
	if err != nil {
		unit.Path = filepath.Join(dir, xspf.FileName(c))
		return e.fail(ctx, report, unit, err)
	}

	unit.Path = path
	unit.Status = models.StatusOK
	e.record(ctx, report, unit, nil)
	return nil
}

// Import imports path. A directory imports every playlist file followed by the saved tracks, albums and shows
// files; a single .xspf file is routed by its name.
func (e *LibraryEngine) Import(ctx context.Context, path string) (*Report, error) {
	report := e.newReport(models.OpImport)

	info, err := os.Stat(path)
	if err != nil {
		return report, fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}

	if info.IsDir() {
		return report, e.importDir(ctx, path, report)
	}

	if !strings.EqualFold(filepath.Ext(path), xspf.Extension) {
		return report, fmt.Errorf("%w: %s is neither a directory nor an %s file", shared.ErrFilesystem, path, xspf.Extension)
	}

	if kind, ok := xspf.FixedKind(path); ok {
		return report, e.importSaved(ctx, kind, path, report)
	}
	return report, e.importPlaylistFile(ctx, path, report)
}

// ImportAll imports every file in dir.
func (e *LibraryEngine) ImportAll(ctx context.Context, dir string) (*Report, error) {
	report := e.newReport(models.OpImport)
	return report, e.importDir(ctx, dir, report)
}

// ImportPlaylistFile merges one playlist file into the remote playlist with the same name, creating it if absent.
func (e *LibraryEngine) ImportPlaylistFile(ctx context.Context, path string) (*Report, error) {
	report := e.newReport(models.OpImport)
	return report, e.importPlaylistFile(ctx, path, report)
}

// ImportSaved adds every entry of a saved collection file to the library. path may be the file itself or the
// directory holding the fixed-name file.
func (e *LibraryEngine) ImportSaved(ctx context.Context, kind models.Kind, path string) (*Report, error) {
	report := e.newReport(models.OpImport)
	if kind == models.KindPlaylist {
		return report, fmt.Errorf("%w: playlists are imported per file", shared.ErrInvalidArgument)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, xspf.FixedFile(kind))
	}
	return report, e.importSaved(ctx, kind, path, report)
}

func (e *LibraryEngine) importDir(ctx context.Context, dir string, report *Report) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), xspf.Extension) {
			continue
		}
		if _, fixed := xspf.FixedKind(name); fixed {
			continue
		}
		if err := e.importPlaylistFile(ctx, filepath.Join(dir, name), report); err != nil {
			return err
		}
	}

	for _, kind := range models.Kinds[1:] {
		path := filepath.Join(dir, xspf.FixedFile(kind))
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			e.record(ctx, report, UnitResult{Kind: kind, Path: path, Status: models.StatusSkipped}, nil)
			continue
		}
		if err := e.importSaved(ctx, kind, path, report); err != nil {
			return err
		}
	}
	return nil
}

func (e *LibraryEngine) importPlaylistFile(ctx context.Context, path string, report *Report) error {
	unit := UnitResult{Kind: models.KindPlaylist, Path: path}

	doc, err := xspf.Read(path)
	if err != nil {
		return e.fail(ctx, report, unit, err)
	}
	if doc.Kind != models.KindPlaylist {
		return e.saveDocument(ctx, doc, path, report)
	}
	unit.Name = doc.Title

	target, err := e.resolvePlaylist(ctx, doc)
	if err != nil {
		return e.fail(ctx, report, unit, err)
	}

	if doc.Collaborative {
		if err := e.catalog.SetCollaborative(ctx, target.ID, true); err != nil {
			return e.fail(ctx, report, unit, fmt.Errorf("%w: set collaborative: %w", shared.ErrCatalogMutation, err))
		}
	}

	items, err := e.playlistItems(ctx, target.ID)
	if err != nil {
		return e.fail(ctx, report, unit, err)
	}

	missing := missingURIs(doc.Locations, items)
	applied, err := ApplyInChunks(ctx, missing, services.PlaylistAddLimit, func(ctx context.Context, chunk []string) error {
		if err := e.catalog.AddPlaylistItems(ctx, target.ID, chunk); err != nil {
			return err
		}
		e.logger.Info("added tracks", "playlist", target.Name, "count", len(chunk))
		return nil
	})
	unit.Count = applied
	if err != nil {
		return e.fail(ctx, report, unit, err)
	}

	unit.Status = models.StatusOK
	e.record(ctx, report, unit, nil)
	return nil
}

// resolvePlaylist returns the first playlist named exactly like doc, creating one when none exists.
func (e *LibraryEngine) resolvePlaylist(ctx context.Context, doc *xspf.Document) (*services.SpotifySimplePlaylist, error) {
	playlists, err := Drain[services.SpotifySimplePlaylist](ctx, e.catalog.UserPlaylists)
	if err != nil {
		return nil, err
	}

	for i := range playlists {
		if playlists[i].Name == doc.Title {
			e.logger.Debug("using existing playlist", "playlist", doc.Title, "id", playlists[i].ID)
			return &playlists[i], nil
		}
	}

	user, err := e.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	created, err := e.catalog.CreatePlaylist(ctx, user.ID, doc.Title, doc.Public)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist: %w", shared.ErrCatalogMutation, err)
	}
	e.logger.Info("created playlist", "playlist", doc.Title, "public", doc.Public)
	return created, nil
}

// missingURIs keeps the locations absent from items, in file order and with the file's own duplicates.
func missingURIs(locations []string, items []services.SpotifyPlaylistTrack) []string {
	existing := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Track != nil && item.Track.URI != "" {
			existing[item.Track.URI] = struct{}{}
		}
	}

	missing := make([]string, 0, len(locations))
	for _, uri := range locations {
		if _, ok := existing[uri]; !ok {
			missing = append(missing, uri)
		}
	}
	return missing
}

func (e *LibraryEngine) importSaved(ctx context.Context, kind models.Kind, path string, report *Report) error {
	doc, err := xspf.Read(path)
	if err != nil {
		return e.fail(ctx, report, UnitResult{Kind: kind, Path: path}, err)
	}
	if doc.Kind != kind {
		err := fmt.Errorf("%w: expected %s document, found %s", shared.ErrFileFormat, kind, doc.Kind)
		return e.fail(ctx, report, UnitResult{Kind: kind, Path: path}, err)
	}
	return e.saveDocument(ctx, doc, path, report)
}

// saveDocument submits every location of a saved collection without checking what is already saved.
func (e *LibraryEngine) saveDocument(ctx context.Context, doc *xspf.Document, path string, report *Report) error {
	unit := UnitResult{Kind: doc.Kind, Path: path}

	applied, err := ApplyInChunks(ctx, doc.Locations, services.LibraryLimit, func(ctx context.Context, chunk []string) error {
		if err := e.catalog.SaveItems(ctx, doc.Kind, chunk); err != nil {
			return err
		}
		e.logger.Info("saved items", "kind", doc.Kind, "count", len(chunk))
		return nil
	})
	unit.Count = applied
	if err != nil {
		return e.fail(ctx, report, unit, err)
	}

	unit.Status = models.StatusOK
	e.record(ctx, report, unit, nil)
	return nil
}

func (r *run) playlistItems(ctx context.Context, playlistID string) ([]services.SpotifyPlaylistTrack, error) {
	return Drain[services.SpotifyPlaylistTrack](ctx, func(ctx context.Context, cursor string) (*services.Page[services.SpotifyPlaylistTrack], error) {
		return r.catalog.PlaylistItems(ctx, playlistID, cursor)
	})
}

// savedRecords enumerates and normalizes one saved collection.
func (r *run) savedRecords(ctx context.Context, kind models.Kind) ([]models.Record, error) {
	switch kind {
	case models.KindSavedTracks:
		items, err := Drain[services.SpotifySavedTrack](ctx, r.catalog.SavedTracks)
		if err != nil {
			return nil, err
		}
		return NormalizeSavedTracks(items), nil
	case models.KindSavedAlbums:
		items, err := Drain[services.SpotifySavedAlbum](ctx, r.catalog.SavedAlbums)
		if err != nil {
			return nil, err
		}
		return NormalizeAlbums(items), nil
	case models.KindSavedShows:
		items, err := Drain[services.SpotifySavedShow](ctx, r.catalog.SavedShows)
		if err != nil {
			return nil, err
		}
		return NormalizeShows(items), nil
	default:
		return nil, fmt.Errorf("%w: %s is not a saved collection", shared.ErrInvalidArgument, kind)
	}
}

func ensureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: export directory", shared.ErrMissingArgument)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}
	return nil
}
