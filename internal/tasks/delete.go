package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// DeletionGuard empties library collections after one confirmation per kind.
type DeletionGuard struct {
	run
	confirm Confirmer
}

// NewDeletionGuard creates a [DeletionGuard]. A nil logger discards output.
func NewDeletionGuard(catalog services.Catalog, confirm Confirmer, logger *log.Logger, opts ...Option) *DeletionGuard {
	return &DeletionGuard{run: newRun(catalog, logger, opts...), confirm: confirm}
}

// DeleteAll deletes owned playlists, then saved tracks, saved albums and saved shows.
func (g *DeletionGuard) DeleteAll(ctx context.Context) (*Report, error) {
	report := g.newReport(models.OpDelete)
	for _, kind := range models.Kinds {
		if err := g.delete(ctx, kind, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Delete empties a single collection kind.
func (g *DeletionGuard) Delete(ctx context.Context, kind models.Kind) (*Report, error) {
	report := g.newReport(models.OpDelete)
	return report, g.delete(ctx, kind, report)
}

func (g *DeletionGuard) delete(ctx context.Context, kind models.Kind, report *Report) error {
	if g.confirm == nil {
		return fmt.Errorf("%w: no confirmation prompt configured", shared.ErrInvalidArgument)
	}
	if kind == models.KindPlaylist {
		return g.deletePlaylists(ctx, report)
	}

	unit := UnitResult{Kind: kind}
	records, err := g.savedRecords(ctx, kind)
	if err != nil {
		return g.fail(ctx, report, unit, err)
	}
	if len(records) == 0 {
		unit.Status = models.StatusOK
		g.record(ctx, report, unit, nil)
		return nil
	}

	ok, err := g.confirm.Confirm(ctx, fmt.Sprintf("Delete all %d %s?", len(records), kind.Label()))
	if err != nil {
		return g.fail(ctx, report, unit, err)
	}
	if !ok {
		unit.Status = models.StatusSkipped
		g.record(ctx, report, unit, nil)
		return nil
	}

	uris := make([]string, 0, len(records))
	for _, r := range records {
		uris = append(uris, r.URI)
	}

	deleted, err := ApplyInChunks(ctx, uris, services.LibraryLimit, func(ctx context.Context, chunk []string) error {
		if err := g.catalog.RemoveSavedItems(ctx, kind, chunk); err != nil {
			return err
		}
		g.logger.Info("removed items", "kind", kind, "count", len(chunk))
		return nil
	})
	unit.Count = deleted
	if err != nil {
		return g.fail(ctx, report, unit, err)
	}

	unit.Status = models.StatusOK
	g.record(ctx, report, unit, nil)
	return nil
}

// deletePlaylists unfollows, one at a time, every playlist owned by the current user. Followed playlists
// owned by others are left alone.
func (g *DeletionGuard) deletePlaylists(ctx context.Context, report *Report) error {
	unit := UnitResult{Kind: models.KindPlaylist}

	user, err := g.currentUser(ctx)
	if err != nil {
		return g.fail(ctx, report, unit, err)
	}

	playlists, err := Drain[services.SpotifySimplePlaylist](ctx, g.catalog.UserPlaylists)
	if err != nil {
		return g.fail(ctx, report, unit, err)
	}

	owned := make([]services.SpotifySimplePlaylist, 0, len(playlists))
	for _, pl := range playlists {
		if pl.Owner.ID == user.ID {
			owned = append(owned, pl)
		}
	}

	if len(owned) == 0 {
		unit.Status = models.StatusOK
		g.record(ctx, report, unit, nil)
		return nil
	}

	ok, err := g.confirm.Confirm(ctx, fmt.Sprintf("Delete all %d playlists owned by '%s'?", len(owned), user.ID))
	if err != nil {
		return g.fail(ctx, report, unit, err)
	}
	if !ok {
		unit.Status = models.StatusSkipped
		g.record(ctx, report, unit, nil)
		return nil
	}

	for _, pl := range owned {
		if err := g.catalog.UnfollowPlaylist(ctx, pl.ID); err != nil {
			unit.Name = pl.Name
			return g.fail(ctx, report, unit, fmt.Errorf("%w: unfollow: %w", shared.ErrCatalogMutation, err))
		}
		unit.Count++
		g.logger.Info("deleted playlist", "playlist", pl.Name)
	}

	unit.Status = models.StatusOK
	g.record(ctx, report, unit, nil)
	return nil
}
