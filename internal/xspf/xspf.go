// Package xspf reads and writes the XSPF playlist files that hold an exported library.
//
// Playlists (and the saved tracks pseudo-playlist) are written as standard XSPF documents with an
// extension element carrying the public, collaborative and type flags. Saved albums and saved shows use
// sibling documents rooted at <album> and <show> in the same namespace:
//
//	<album version="1" xmlns="http://xspf.org/ns/0/">
//	  <albumList>
//	    <album><title/><creator/><location/></album>
//	  </albumList>
//	</album>
package xspf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

const (
	Namespace   = "http://xspf.org/ns/0/"
	Application = "https://github.com/debfx/spotify-playlists"
	Extension   = ".xspf"

	SavedTracksFile = "__saved_tracks.xspf"
	SavedAlbumsFile = "__saved_albums.xspf"
	SavedShowsFile  = "__saved_shows.xspf"

	// SavedTracksTitle names the pseudo-playlist built from the user's saved tracks.
	SavedTracksTitle = "Saved tracks"

	version = "1"
)

type extension struct {
	Application   string `xml:"application,attr"`
	Public        string `xml:"public"`
	Collaborative string `xml:"collaborative"`
	Type          string `xml:"type"`
}

type trackEntry struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Location string `xml:"location"`
}

type showEntry struct {
	Title     string `xml:"title"`
	Publisher string `xml:"publisher"`
	Location  string `xml:"location"`
}

type trackList struct {
	Tracks []trackEntry `xml:"track"`
}

type albumList struct {
	Albums []trackEntry `xml:"album"`
}

type showList struct {
	Shows []showEntry `xml:"show"`
}

type playlistDocument struct {
	XMLName   xml.Name  `xml:"http://xspf.org/ns/0/ playlist"`
	Version   string    `xml:"version,attr"`
	Title     string    `xml:"title"`
	Location  string    `xml:"location,omitempty"`
	Extension extension `xml:"extension"`
	TrackList trackList `xml:"trackList"`
}

type albumDocument struct {
	XMLName   xml.Name  `xml:"http://xspf.org/ns/0/ album"`
	Version   string    `xml:"version,attr"`
	AlbumList albumList `xml:"albumList"`
}

type showDocument struct {
	XMLName  xml.Name `xml:"http://xspf.org/ns/0/ show"`
	Version  string   `xml:"version,attr"`
	ShowList showList `xml:"showList"`
}

// FileName derives the on-disk name for c.
//
// Saved collections use fixed names; playlists use their name with "/" replaced by "_".
func FileName(c models.Collection) string {
	switch c.Kind {
	case models.KindSavedTracks:
		return SavedTracksFile
	case models.KindSavedAlbums:
		return SavedAlbumsFile
	case models.KindSavedShows:
		return SavedShowsFile
	default:
		return strings.ReplaceAll(c.Name, "/", "_") + Extension
	}
}

// FixedKind reports which saved collection a fixed file name belongs to.
func FixedKind(name string) (models.Kind, bool) {
	switch filepath.Base(name) {
	case SavedTracksFile:
		return models.KindSavedTracks, true
	case SavedAlbumsFile:
		return models.KindSavedAlbums, true
	case SavedShowsFile:
		return models.KindSavedShows, true
	default:
		return "", false
	}
}

// FixedFile returns the fixed file name for a saved collection kind, or "" for playlists.
func FixedFile(kind models.Kind) string {
	if kind == models.KindPlaylist {
		return ""
	}
	return FileName(models.Collection{Kind: kind})
}

// Marshal renders c as an indented XSPF document with an XML declaration.
func Marshal(c models.Collection) ([]byte, error) {
	var doc any
	switch c.Kind {
	case models.KindPlaylist, models.KindSavedTracks:
		d := playlistDocument{
			Version:  version,
			Title:    c.Name,
			Location: c.Location,
			Extension: extension{
				Application:   Application,
				Public:        formatBool(c.Public),
				Collaborative: formatBool(c.Collaborative),
				Type:          string(c.Kind),
			},
		}
		d.TrackList.Tracks = make([]trackEntry, 0, len(c.Records))
		for _, r := range c.Records {
			d.TrackList.Tracks = append(d.TrackList.Tracks, trackEntry{Title: r.Title, Creator: r.Artists, Location: r.URI})
		}
		doc = d
	case models.KindSavedAlbums:
		d := albumDocument{Version: version}
		d.AlbumList.Albums = make([]trackEntry, 0, len(c.Records))
		for _, r := range c.Records {
			d.AlbumList.Albums = append(d.AlbumList.Albums, trackEntry{Title: r.Title, Creator: r.Artists, Location: r.URI})
		}
		doc = d
	case models.KindSavedShows:
		d := showDocument{Version: version}
		d.ShowList.Shows = make([]showEntry, 0, len(c.Records))
		for _, r := range c.Records {
			d.ShowList.Shows = append(d.ShowList.Shows, showEntry{Title: r.Title, Publisher: r.Artists, Location: r.URI})
		}
		doc = d
	default:
		return nil, fmt.Errorf("%w: unknown collection kind %q", shared.ErrInvalidArgument, c.Kind)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c.Kind, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Write marshals c into dir, overwriting any earlier file with the same name, and returns the path written.
func Write(dir string, c models.Collection) (string, error) {
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(c))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}
	return path, nil
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
