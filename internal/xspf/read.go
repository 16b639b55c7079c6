package xspf

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// Document is a parsed playlist file.
//
// Locations preserves document order, including duplicates. Records carries the same entries with their
// titles and creators (the publisher for shows).
type Document struct {
	Kind          models.Kind
	Title         string
	Location      string
	Public        bool
	Collaborative bool
	Type          string
	Locations     []string
	Records       []models.Record
}

// Collection converts d back into a [models.Collection].
func (d *Document) Collection() models.Collection {
	return models.Collection{
		Kind:          d.Kind,
		Name:          d.Title,
		Public:        d.Public,
		Collaborative: d.Collaborative,
		Location:      d.Location,
		Records:       d.Records,
	}
}

type entry struct {
	Title     string `xml:"title"`
	Creator   string `xml:"creator"`
	Publisher string `xml:"publisher"`
	Location  string `xml:"location"`
}

// anyDocument accepts all three roots in any namespace.
type anyDocument struct {
	XMLName    xml.Name
	Title      *string     `xml:"title"`
	Location   string      `xml:"location"`
	Extensions []extension `xml:"extension"`
	Tracks     []entry     `xml:"trackList>track"`
	Albums     []entry     `xml:"albumList>album"`
	Shows      []entry     `xml:"showList>show"`
}

// Read parses the playlist file at path.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFilesystem, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes an XSPF document produced by [Marshal] (or a compatible tool).
func Parse(data []byte) (*Document, error) {
	var raw anyDocument
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFileFormat, err)
	}

	doc := &Document{Location: strings.TrimSpace(raw.Location)}
	var entries []entry

	switch raw.XMLName.Local {
	case "playlist":
		if raw.Title == nil || strings.TrimSpace(*raw.Title) == "" {
			return nil, fmt.Errorf("%w: playlist has no title", shared.ErrFileFormat)
		}
		doc.Title = *raw.Title
		doc.Kind = models.KindPlaylist
		doc.Type = string(models.KindPlaylist)

		if ext := raw.extension(); ext != nil {
			doc.Public = parseBool(ext.Public)
			doc.Collaborative = parseBool(ext.Collaborative)
			if t := strings.TrimSpace(ext.Type); t != "" {
				doc.Type = t
			}
		}
		if doc.Type == string(models.KindSavedTracks) {
			doc.Kind = models.KindSavedTracks
		}
		entries = raw.Tracks
	case "album":
		doc.Kind = models.KindSavedAlbums
		entries = raw.Albums
	case "show":
		doc.Kind = models.KindSavedShows
		entries = raw.Shows
	default:
		return nil, fmt.Errorf("%w: unknown root element <%s>", shared.ErrFileFormat, raw.XMLName.Local)
	}

	doc.Locations = make([]string, 0, len(entries))
	doc.Records = make([]models.Record, 0, len(entries))
	for i, e := range entries {
		location := strings.TrimSpace(e.Location)
		if location == "" {
			return nil, fmt.Errorf("%w: entry %d has no location", shared.ErrFileFormat, i+1)
		}

		artists := e.Creator
		if doc.Kind == models.KindSavedShows {
			artists = e.Publisher
		}
		doc.Locations = append(doc.Locations, location)
		doc.Records = append(doc.Records, models.Record{Title: e.Title, Artists: artists, URI: location})
	}
	return doc, nil
}

// extension returns the extension written by this tool. Other applications' extensions are ignored.
func (d *anyDocument) extension() *extension {
	for i := range d.Extensions {
		if strings.TrimSpace(d.Extensions[i].Application) == Application {
			return &d.Extensions[i]
		}
	}
	return nil
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
