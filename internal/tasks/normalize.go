package tasks

import (
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
)

// localPrefix marks files from the user's device; they have no catalog identity.
const localPrefix = "spotify:local:"

// NormalizeTrack converts a track into a [models.Record]. Returns false for missing or local tracks.
func NormalizeTrack(t *services.SpotifyTrack) (models.Record, bool) {
	if t == nil || t.IsLocal || t.URI == "" || strings.HasPrefix(t.URI, localPrefix) {
		return models.Record{}, false
	}
	return models.Record{Title: t.Name, Artists: joinArtists(t.Artists), URI: t.URI}, true
}

// NormalizeTracks converts playlist items, dropping unavailable and local entries.
func NormalizeTracks(items []services.SpotifyPlaylistTrack) []models.Record {
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		if r, ok := NormalizeTrack(item.Track); ok {
			records = append(records, r)
		}
	}
	return records
}

// NormalizeSavedTracks converts saved track items.
func NormalizeSavedTracks(items []services.SpotifySavedTrack) []models.Record {
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		if r, ok := NormalizeTrack(item.Track); ok {
			records = append(records, r)
		}
	}
	return records
}

// NormalizeAlbums converts saved albums; the album artists become the creator.
func NormalizeAlbums(items []services.SpotifySavedAlbum) []models.Record {
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		if item.Album == nil || item.Album.URI == "" {
			continue
		}
		records = append(records, models.Record{
			Title:   item.Album.Name,
			Artists: joinArtists(item.Album.Artists),
			URI:     item.Album.URI,
		})
	}
	return records
}

// NormalizeShows converts saved shows; the publisher takes the creator slot.
func NormalizeShows(items []services.SpotifySavedShow) []models.Record {
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		if item.Show == nil || item.Show.URI == "" {
			continue
		}
		records = append(records, models.Record{
			Title:   item.Show.Name,
			Artists: item.Show.Publisher,
			URI:     item.Show.URI,
		})
	}
	return records
}

func joinArtists(artists []services.SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ";")
}
