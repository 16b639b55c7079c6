package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
	"github.com/desertthunder/spx/internal/xspf"
)

type memoryJournal struct {
	entries []*models.JournalEntry
	err     error
}

func (j *memoryJournal) Record(ctx context.Context, entry *models.JournalEntry) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, entry)
	return nil
}

func seededCatalog() *tu.FakeCatalog {
	fake := tu.NewFakeCatalog("me")
	rock := fake.AddPlaylist("Rock/Pop", "me", "spotify:track:1", "", "spotify:track:2", "spotify:local:a:b:c:3")
	rock.Public = true
	fake.AddPlaylist("Chill", "someone-else", "spotify:track:4")
	fake.LikedTracks = tu.SavedTrackItems("spotify:track:5", "spotify:track:6", "spotify:track:7")
	fake.LikedAlbums = tu.SavedAlbumItems("spotify:album:1", "spotify:album:2")
	fake.LikedShows = tu.SavedShowItems("spotify:show:1")
	return fake
}

func trackURIs(n int) []string {
	uris := make([]string, n)
	for i := range uris {
		uris[i] = fmt.Sprintf("spotify:track:n%d", i)
	}
	return uris
}

func writePlaylistFile(t *testing.T, dir, name string, public, collaborative bool, uris ...string) string {
	t.Helper()
	c := models.Collection{Kind: models.KindPlaylist, Name: name, Public: public, Collaborative: collaborative}
	for _, uri := range uris {
		c.Records = append(c.Records, models.Record{Title: "t", Artists: "a", URI: uri})
	}
	path, err := xspf.Write(dir, c)
	if err != nil {
		t.Fatalf("failed to write playlist file: %v", err)
	}
	return path
}

func writeSavedFile(t *testing.T, dir string, kind models.Kind, uris ...string) string {
	t.Helper()
	c := models.Collection{Kind: kind}
	if kind == models.KindSavedTracks {
		c.Name = xspf.SavedTracksTitle
	}
	for _, uri := range uris {
		c.Records = append(c.Records, models.Record{Title: "t", Artists: "a", URI: uri})
	}
	path, err := xspf.Write(dir, c)
	if err != nil {
		t.Fatalf("failed to write saved file: %v", err)
	}
	return path
}

func TestLibraryEngineExport(t *testing.T) {
	ctx := context.Background()

	t.Run("ExportAll writes one file per collection", func(t *testing.T) {
		fake := seededCatalog()
		dir := filepath.Join(t.TempDir(), "backup", "nested")
		engine := NewLibraryEngine(fake, nil)

		report, err := engine.ExportAll(ctx, dir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{"Chill.xspf", "Rock_Pop.xspf", xspf.SavedAlbumsFile, xspf.SavedShowsFile, xspf.SavedTracksFile}
		got := tu.ListFiles(t, dir)
		slices.Sort(want)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected files %v, got %v", want, got)
		}

		if len(report.Units) != 5 {
			t.Errorf("expected 5 units, got %d", len(report.Units))
		}
		if report.Operation != models.OpExport || report.RunID == "" {
			t.Errorf("unexpected report header %+v", report)
		}

		doc, err := xspf.Read(filepath.Join(dir, "Rock_Pop.xspf"))
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !reflect.DeepEqual(doc.Locations, []string{"spotify:track:1", "spotify:track:2"}) {
			t.Errorf("expected null and local entries dropped, got %v", doc.Locations)
		}
		if doc.Title != "Rock/Pop" || !doc.Public || doc.Location != "spotify:playlist:pl1" {
			t.Errorf("unexpected playlist metadata %+v", doc)
		}
		if doc.Records[0].Artists != "Artist A;Artist B" {
			t.Errorf("expected joined artists, got %q", doc.Records[0].Artists)
		}

		saved, err := xspf.Read(filepath.Join(dir, xspf.SavedTracksFile))
		if err != nil {
			t.Fatalf("failed to read saved tracks: %v", err)
		}
		if saved.Kind != models.KindSavedTracks || saved.Title != xspf.SavedTracksTitle || len(saved.Locations) != 3 {
			t.Errorf("unexpected saved tracks document %+v", saved)
		}
	})

	t.Run("ExportAll order", func(t *testing.T) {
		report, err := NewLibraryEngine(seededCatalog(), nil).ExportAll(ctx, t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var kinds []models.Kind
		for _, u := range report.Units {
			kinds = append(kinds, u.Kind)
		}
		want := []models.Kind{
			models.KindPlaylist, models.KindPlaylist, models.KindSavedTracks, models.KindSavedAlbums, models.KindSavedShows,
		}
		if !reflect.DeepEqual(kinds, want) {
			t.Errorf("expected unit kinds %v, got %v", want, kinds)
		}
	})

	t.Run("playlist kind includes saved tracks", func(t *testing.T) {
		fake := tu.NewFakeCatalog("me")
		fake.AddPlaylist("A", "me", "spotify:track:1")
		fake.LikedTracks = tu.SavedTrackItems("spotify:track:2")
		dir := t.TempDir()

		if _, err := NewLibraryEngine(fake, nil).Export(ctx, models.KindPlaylist, dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := []string{"A.xspf", xspf.SavedTracksFile}
		slices.Sort(want)
		if got := tu.ListFiles(t, dir); !reflect.DeepEqual(got, want) {
			t.Errorf("expected files %v, got %v", want, got)
		}
		if fake.CallCount("SavedAlbums") != 0 || fake.CallCount("SavedShows") != 0 {
			t.Error("expected only playlists and saved tracks to be fetched")
		}
	})

	t.Run("paginates playlist items", func(t *testing.T) {
		fake := tu.NewFakeCatalog("me")
		fake.AddPlaylist("Big", "me", trackURIs(130)...)
		engine := NewLibraryEngine(fake, nil)

		if _, err := engine.Export(ctx, models.KindPlaylist, t.TempDir()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := fake.CallCount("PlaylistItems"); got != 3 {
			t.Errorf("expected 3 item fetches, got %d", got)
		}
		if fake.MutationCount() != 0 {
			t.Errorf("export must not mutate, got %d calls", fake.MutationCount())
		}
	})

	t.Run("re-export overwrites deterministically", func(t *testing.T) {
		fake := seededCatalog()
		dir := t.TempDir()
		engine := NewLibraryEngine(fake, nil)

		if _, err := engine.ExportAll(ctx, dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		first := tu.MustReadFile(t, filepath.Join(dir, "Chill.xspf"))
		if _, err := engine.ExportAll(ctx, dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if second := tu.MustReadFile(t, filepath.Join(dir, "Chill.xspf")); second != first {
			t.Error("expected identical output on re-export")
		}
	})

	t.Run("fetch failure aborts with unit context", func(t *testing.T) {
		fake := seededCatalog()
		fake.FailOn("SavedAlbums", 0, errors.New("service unavailable"))
		journal := &memoryJournal{}
		engine := NewLibraryEngine(fake, nil, WithJournal(journal))

		report, err := engine.ExportAll(ctx, t.TempDir())
		if !errors.Is(err, shared.ErrCatalogFetch) {
			t.Fatalf("expected ErrCatalogFetch, got %v", err)
		}

		var unitErr *shared.UnitError
		if !errors.As(err, &unitErr) || unitErr.Kind != string(models.KindSavedAlbums) {
			t.Errorf("expected unit error for saved albums, got %v", err)
		}
		if fake.CallCount("SavedShows") != 0 {
			t.Error("expected later kinds not to run")
		}

		last := report.Units[len(report.Units)-1]
		if last.Status != models.StatusFailed {
			t.Errorf("expected failed unit, got %+v", last)
		}
		if got := journal.entries[len(journal.entries)-1]; got.Status() != models.StatusFailed || got.Error() == "" {
			t.Errorf("expected failed journal entry with error text, got %+v", got)
		}
	})

	t.Run("journals every unit under one run", func(t *testing.T) {
		journal := &memoryJournal{}
		engine := NewLibraryEngine(seededCatalog(), nil, WithJournal(journal), WithRunID("run-1"))

		report, err := engine.ExportAll(ctx, t.TempDir())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(journal.entries) != len(report.Units) {
			t.Fatalf("expected %d entries, got %d", len(report.Units), len(journal.entries))
		}
		for _, e := range journal.entries {
			if e.RunID() != "run-1" || e.Operation() != models.OpExport {
				t.Errorf("unexpected entry %s %s", e.RunID(), e.Operation())
			}
		}
		if report.RunID != "run-1" || engine.RunID() != "run-1" {
			t.Errorf("expected run ID to be used, got %s", report.RunID)
		}
	})

	t.Run("journal failures do not fail the export", func(t *testing.T) {
		engine := NewLibraryEngine(seededCatalog(), nil, WithJournal(&memoryJournal{err: errors.New("disk full")}))
		if _, err := engine.ExportAll(ctx, t.TempDir()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestLibraryEngineImport(t *testing.T) {
	ctx := context.Background()

	t.Run("re-import of own export keeps names with spaces", func(t *testing.T) {
		fake := tu.NewFakeCatalog("me")
		fake.AddPlaylist("Chill ", "me", "spotify:track:1", "spotify:track:2")
		dir := t.TempDir()
		engine := NewLibraryEngine(fake, nil)

		if _, err := engine.Export(ctx, models.KindPlaylist, dir); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		report, err := engine.Import(ctx, filepath.Join(dir, "Chill .xspf"))
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if got := fake.CallCount("CreatePlaylist"); got != 0 {
			t.Errorf("expected the existing playlist to be reused, got %d creations", got)
		}
		if fake.CallCount("AddPlaylistItems") != 0 {
			t.Errorf("expected nothing to add, got batches %v", fake.AddBatches)
		}
		if report.Units[0].Name != "Chill " {
			t.Errorf("expected exact playlist name, got %q", report.Units[0].Name)
		}
	})

	t.Run("logs progress per chunk", func(t *testing.T) {
		var buf bytes.Buffer
		fake := tu.NewFakeCatalog("me")
		path := writePlaylistFile(t, t.TempDir(), "Big", false, false, trackURIs(130)...)

		if _, err := NewLibraryEngine(fake, shared.NewLogger(&buf)).ImportPlaylistFile(ctx, path); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if got := strings.Count(buf.String(), "added tracks"); got != 2 {
			t.Errorf("expected 2 progress lines at the default level, got %d\n%s", got, buf.String())
		}
	})

	t.Run("round trip restores the library", func(t *testing.T) {
		source := seededCatalog()
		dir := t.TempDir()
		if _, err := NewLibraryEngine(source, nil).ExportAll(ctx, dir); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		target := tu.NewFakeCatalog("me")
		if _, err := NewLibraryEngine(target, nil).Import(ctx, dir); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		for _, name := range []string{"Rock/Pop", "Chill"} {
			want := source.Playlist(name)
			got := target.Playlist(name)
			if got == nil {
				t.Fatalf("expected playlist %q to be created", name)
			}
			wantURIs := NormalizeTracks(want.Items)
			var uris []string
			for _, r := range wantURIs {
				uris = append(uris, r.URI)
			}
			if !reflect.DeepEqual(got.URIs(), uris) {
				t.Errorf("playlist %q: expected %v, got %v", name, uris, got.URIs())
			}
			if got.Public != want.Public {
				t.Errorf("playlist %q: expected public=%v", name, want.Public)
			}
		}

		for _, kind := range []models.Kind{models.KindSavedTracks, models.KindSavedAlbums, models.KindSavedShows} {
			if !reflect.DeepEqual(target.SavedURIs(kind), source.SavedURIs(kind)) {
				t.Errorf("%s: expected %v, got %v", kind, source.SavedURIs(kind), target.SavedURIs(kind))
			}
		}
	})

	t.Run("second import adds nothing", func(t *testing.T) {
		dir := t.TempDir()
		writePlaylistFile(t, dir, "Mix", false, false, "spotify:track:1", "spotify:track:2")
		fake := tu.NewFakeCatalog("me")
		engine := NewLibraryEngine(fake, nil)

		if _, err := engine.Import(ctx, dir); err != nil {
			t.Fatalf("first import failed: %v", err)
		}
		adds, creates := fake.CallCount("AddPlaylistItems"), fake.CallCount("CreatePlaylist")
		before := fake.Playlist("Mix").URIs()

		report, err := engine.Import(ctx, dir)
		if err != nil {
			t.Fatalf("second import failed: %v", err)
		}
		if fake.CallCount("AddPlaylistItems") != adds || fake.CallCount("CreatePlaylist") != creates {
			t.Error("expected no mutations on second import")
		}
		if !reflect.DeepEqual(fake.Playlist("Mix").URIs(), before) {
			t.Errorf("expected unchanged playlist, got %v", fake.Playlist("Mix").URIs())
		}
		if report.Total() != 0 {
			t.Errorf("expected 0 added, got %d", report.Total())
		}
	})

	t.Run("merges into existing playlist preserving file order", func(t *testing.T) {
		dir := t.TempDir()
		path := writePlaylistFile(t, dir, "Mix", false, false,
			"spotify:track:2", "spotify:track:3", "spotify:track:3", "spotify:track:1", "spotify:track:4")
		fake := tu.NewFakeCatalog("me")
		fake.AddPlaylist("Mix", "me", "spotify:track:1", "spotify:track:2")

		report, err := NewLibraryEngine(fake, nil).ImportPlaylistFile(ctx, path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{"spotify:track:1", "spotify:track:2", "spotify:track:3", "spotify:track:3", "spotify:track:4"}
		if got := fake.Playlist("Mix").URIs(); !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if fake.CallCount("CreatePlaylist") != 0 {
			t.Error("expected existing playlist to be reused")
		}
		if report.Units[0].Count != 3 || report.Units[0].Name != "Mix" {
			t.Errorf("unexpected unit %+v", report.Units[0])
		}
	})

	t.Run("first playlist with matching name wins", func(t *testing.T) {
		dir := t.TempDir()
		path := writePlaylistFile(t, dir, "Dup", false, false, "spotify:track:9")
		fake := tu.NewFakeCatalog("me")
		first := fake.AddPlaylist("Dup", "me")
		second := fake.AddPlaylist("Dup", "me")
		fake.AddPlaylist("dup", "me")

		if _, err := NewLibraryEngine(fake, nil).ImportPlaylistFile(ctx, path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(first.URIs()) != 1 || len(second.URIs()) != 0 {
			t.Errorf("expected only the first match to change, got %v and %v", first.URIs(), second.URIs())
		}
	})

	t.Run("creates playlist with file flags", func(t *testing.T) {
		dir := t.TempDir()
		path := writePlaylistFile(t, dir, "Shared", true, true, "spotify:track:1")
		fake := tu.NewFakeCatalog("me")

		if _, err := NewLibraryEngine(fake, nil).Import(ctx, path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		pl := fake.Playlist("Shared")
		if pl == nil {
			t.Fatal("expected playlist to be created")
		}
		if !pl.Public || !pl.Collaborative || pl.Owner.ID != "me" {
			t.Errorf("unexpected playlist %+v", pl.SpotifySimplePlaylist)
		}
		if fake.CallCount("SetCollaborative") != 1 || fake.CallCount("CurrentUser") != 1 {
			t.Errorf("unexpected calls %v", fake.Calls)
		}
	})

	t.Run("chunks additions", func(t *testing.T) {
		dir := t.TempDir()
		writePlaylistFile(t, dir, "Big", false, false, trackURIs(130)...)
		writeSavedFile(t, dir, models.KindSavedTracks, trackURIs(130)...)
		fake := tu.NewFakeCatalog("me")

		if _, err := NewLibraryEngine(fake, nil).Import(ctx, dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(fake.AddBatches, []int{100, 30}) {
			t.Errorf("expected playlist batches 100,30, got %v", fake.AddBatches)
		}
		if got := fake.Batches[models.KindSavedTracks]; !reflect.DeepEqual(got, []int{50, 50, 30}) {
			t.Errorf("expected saved batches 50,50,30, got %v", got)
		}
	})

	t.Run("missing saved files are skipped", func(t *testing.T) {
		dir := t.TempDir()
		writePlaylistFile(t, dir, "Only", false, false, "spotify:track:1")
		fake := tu.NewFakeCatalog("me")

		report, err := NewLibraryEngine(fake, nil).Import(ctx, dir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		skipped := 0
		for _, u := range report.Units {
			if u.Status == models.StatusSkipped {
				skipped++
			}
		}
		if skipped != 3 {
			t.Errorf("expected 3 skipped saved collections, got %d", skipped)
		}
		if fake.CallCount("SaveItems") != 0 {
			t.Error("expected no saved item calls")
		}
	})

	t.Run("fixed-name file routes to saved import", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSavedFile(t, dir, models.KindSavedShows, "spotify:show:1", "spotify:show:2")
		fake := tu.NewFakeCatalog("me")

		if _, err := NewLibraryEngine(fake, nil).Import(ctx, path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := fake.SavedURIs(models.KindSavedShows); len(got) != 2 {
			t.Errorf("expected 2 saved shows, got %v", got)
		}
		if fake.CallCount("UserPlaylists") != 0 {
			t.Error("expected playlists untouched")
		}
	})

	t.Run("ImportSaved accepts a directory", func(t *testing.T) {
		dir := t.TempDir()
		writeSavedFile(t, dir, models.KindSavedAlbums, "spotify:album:7")
		fake := tu.NewFakeCatalog("me")

		if _, err := NewLibraryEngine(fake, nil).ImportSaved(ctx, models.KindSavedAlbums, dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := fake.SavedURIs(models.KindSavedAlbums); !reflect.DeepEqual(got, []string{"spotify:album:7"}) {
			t.Errorf("unexpected saved albums %v", got)
		}
	})

	t.Run("rejected paths", func(t *testing.T) {
		dir := t.TempDir()
		notes := tu.MustWriteFile(t, dir, "notes.txt", "hello")

		tests := []struct {
			name string
			path string
		}{
			{name: "missing", path: filepath.Join(dir, "nope")},
			{name: "wrong extension", path: notes},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				fake := tu.NewFakeCatalog("me")
				_, err := NewLibraryEngine(fake, nil).Import(ctx, tt.path)
				if !errors.Is(err, shared.ErrFilesystem) {
					t.Errorf("expected ErrFilesystem, got %v", err)
				}
				if len(fake.Calls) != 0 {
					t.Errorf("expected no catalog calls, got %v", fake.Calls)
				}
			})
		}
	})

	t.Run("malformed file mutates nothing", func(t *testing.T) {
		dir := t.TempDir()
		path := tu.MustWriteFile(t, dir, "Broken.xspf", "<playlist><title>Broken</title>")
		fake := tu.NewFakeCatalog("me")

		_, err := NewLibraryEngine(fake, nil).Import(ctx, path)
		if !errors.Is(err, shared.ErrFileFormat) {
			t.Errorf("expected ErrFileFormat, got %v", err)
		}
		if fake.MutationCount() != 0 {
			t.Errorf("expected no mutations, got %v", fake.Calls)
		}
	})

	t.Run("failed batch reports applied count", func(t *testing.T) {
		dir := t.TempDir()
		path := writePlaylistFile(t, dir, "Big", false, false, trackURIs(130)...)
		fake := tu.NewFakeCatalog("me")
		fake.FailOn("AddPlaylistItems", 1, errors.New("status 500"))

		report, err := NewLibraryEngine(fake, nil).ImportPlaylistFile(ctx, path)
		if !errors.Is(err, shared.ErrCatalogMutation) {
			t.Fatalf("expected ErrCatalogMutation, got %v", err)
		}
		unit := report.Units[len(report.Units)-1]
		if unit.Status != models.StatusFailed || unit.Count != 100 {
			t.Errorf("expected failed unit with 100 applied, got %+v", unit)
		}
		if got := len(fake.Playlist("Big").URIs()); got != 100 {
			t.Errorf("expected first chunk to stay applied, got %d", got)
		}
	})
}
