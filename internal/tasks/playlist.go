package tasks

import (
	"context"
	"fmt"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
)

// transferPlaylist rebuilds one source playlist on the target provider:
// fetch its tracks, create the destination playlist, match each track
// into the target catalog and insert the matches.
//
// A playlist with some unmatched tracks still succeeds; only zero
// matches out of a non-empty track list is a failure.
func (e *Engine) transferPlaylist(ctx context.Context, playlist models.Item) (models.Outcome, error) {
	outcome := models.Outcome{Type: models.Playlists, Item: playlist}

	fail := func(err error) (models.Outcome, error) {
		outcome.Status = models.StatusFailed
		outcome.Err = err.Error()
		e.logger.Warn("playlist failed", "playlist", playlist.Name, "error", err)
		if abortsRun(err) {
			return outcome, err
		}
		return outcome, nil
	}

	tracks, err := e.source.PlaylistTracks(ctx, e.srcAcct, playlist.ID)
	if err != nil {
		return fail(fmt.Errorf("failed to read playlist tracks: %w", err))
	}

	description := fmt.Sprintf("Imported from %s", e.source.Name())
	targetID, err := e.target.CreatePlaylist(ctx, e.tgtAcct, playlist.Name, description)
	if err != nil {
		return fail(fmt.Errorf("failed to create playlist: %w", err))
	}
	outcome.TargetID = targetID

	matched := make([]string, 0, len(tracks))
	for _, track := range tracks {
		id, err := e.resolve(ctx, models.Tracks, track)
		if err != nil {
			if abortsRun(err) {
				return fail(err)
			}
			e.logger.Info("playlist track unmatched", "playlist", playlist.Name, "track", track.Name)
			continue
		}
		matched = append(matched, id)
	}

	if len(tracks) > 0 && len(matched) == 0 {
		return fail(fmt.Errorf("%w: no playlist tracks matched", shared.ErrNoMatch))
	}

	if len(matched) > 0 {
		if err := e.target.AddPlaylistTracks(ctx, e.tgtAcct, targetID, matched); err != nil {
			return fail(fmt.Errorf("failed to add playlist tracks: %w", err))
		}
	}

	if len(matched) < len(tracks) {
		e.logger.Info("playlist transferred partially",
			"playlist", playlist.Name, "matched", len(matched), "total", len(tracks))
	}

	outcome.Status = models.StatusAdded
	return outcome, nil
}
