// Tidal [Catalog] implementation
//
// Talks to the legacy v1 API (api.tidal.com/v1), which is what the
// device-code client ids are scoped for. Favorites responses wrap each
// entity in an envelope whose field name depends on the item type.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/favx/favx/internal/models"
)

const (
	tidalAuthBase = "https://auth.tidal.com/v1"
	tidalAPIBase  = "https://api.tidal.com/v1"

	tidalPageSize      = 100
	tidalSearchLimit   = 5
	tidalPlaylistBatch = 100
)

// TidalCatalog implements [Catalog] for Tidal.
type TidalCatalog struct {
	base
	clientID string
	authBase string
	apiBase  string
}

// NewTidalCatalog creates a Tidal adapter with the given device-flow
// client id.
func NewTidalCatalog(clientID string, deps Deps) *TidalCatalog {
	return &TidalCatalog{
		base:     newBase(deps),
		clientID: clientID,
		authBase: tidalAuthBase,
		apiBase:  tidalAPIBase,
	}
}

func (t *TidalCatalog) Name() string              { return "Tidal" }
func (t *TidalCatalog) Provider() models.Provider { return models.Tidal }

type tidalArtist struct {
	Name string `json:"name"`
}

// tidalEntity covers tracks, albums, artists and playlists; unused
// fields decode to zero values.
type tidalEntity struct {
	ID      json.Number   `json:"id"`
	UUID    string        `json:"uuid"`
	Title   string        `json:"title"`
	Name    string        `json:"name"`
	Artists []tidalArtist `json:"artists"`
	Artist  *tidalArtist  `json:"artist"`
	Album   *struct {
		Title string `json:"title"`
	} `json:"album"`
}

func (e *tidalEntity) toItem() models.Item {
	item := models.Item{ID: e.ID.String(), Name: e.Title}
	if e.UUID != "" {
		item.ID = e.UUID
	}
	if item.Name == "" {
		item.Name = e.Name
	}
	for _, a := range e.Artists {
		item.Artists = append(item.Artists, a.Name)
	}
	if len(item.Artists) == 0 && e.Artist != nil {
		item.Artists = []string{e.Artist.Name}
	}
	if e.Album != nil {
		item.Album = e.Album.Title
	}
	return item
}

// tidalFavorite is the per-type envelope around a favorited entity.
type tidalFavorite struct {
	Item     *tidalEntity `json:"item"`
	Track    *tidalEntity `json:"track"`
	Artist   *tidalEntity `json:"artist"`
	Album    *tidalEntity `json:"album"`
	Playlist *tidalEntity `json:"playlist"`
}

func (f *tidalFavorite) entity() *tidalEntity {
	for _, e := range []*tidalEntity{f.Item, f.Track, f.Artist, f.Album, f.Playlist} {
		if e != nil {
			return e
		}
	}
	return nil
}

// tidalPage wraps favorites responses, whose entities sit in per-type
// envelopes.
type tidalPage struct {
	Items []tidalFavorite `json:"items"`
}

// tidalEntityPage wraps responses whose items are unwrapped entities
// (user playlists, playlist tracks).
type tidalEntityPage struct {
	Items []tidalEntity `json:"items"`
}

func (t *TidalCatalog) ListFavorites(ctx context.Context, account *models.Account, typ models.ItemType) ([]models.Item, error) {
	if typ == models.Playlists {
		return t.listPlaylists(ctx, account)
	}

	path := fmt.Sprintf("/users/%s/favorites/%s", account.UserID, typ)

	var items []models.Item
	for offset := 0; ; offset += tidalPageSize {
		endpoint := fmt.Sprintf("%s%s?offset=%d&limit=%d", t.apiBase, path, offset, tidalPageSize)

		var page tidalPage
		if err := t.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
			if terr := tolerateMissing(err); terr == nil {
				return []models.Item{}, nil
			}
			return nil, err
		}

		for i := range page.Items {
			if e := page.Items[i].entity(); e != nil {
				items = append(items, e.toItem())
			}
		}

		if len(page.Items) < tidalPageSize {
			break
		}
	}

	return items, nil
}

func (t *TidalCatalog) listPlaylists(ctx context.Context, account *models.Account) ([]models.Item, error) {
	var items []models.Item
	for offset := 0; ; offset += tidalPageSize {
		endpoint := fmt.Sprintf("%s/users/%s/playlists?offset=%d&limit=%d", t.apiBase, account.UserID, offset, tidalPageSize)

		var page tidalEntityPage
		if err := t.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
			if terr := tolerateMissing(err); terr == nil {
				return []models.Item{}, nil
			}
			return nil, err
		}

		for i := range page.Items {
			items = append(items, page.Items[i].toItem())
		}

		if len(page.Items) < tidalPageSize {
			break
		}
	}
	return items, nil
}

func (t *TidalCatalog) Search(ctx context.Context, account *models.Account, query string, typ models.ItemType) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("%s/search/%s?query=%s&limit=%d", t.apiBase, typ, url.QueryEscape(query), tidalSearchLimit)

	var page struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := t.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(page.Items))
	for _, raw := range page.Items {
		var e tidalEntity
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		candidates = append(candidates, models.Candidate{Item: e.toItem(), Raw: raw})
	}
	return candidates, nil
}

// tidalIDParam maps an item type to the form field of the favorites
// endpoint.
func tidalIDParam(typ models.ItemType) string {
	switch typ {
	case models.Tracks:
		return "trackId"
	case models.Artists:
		return "artistId"
	case models.Albums:
		return "albumId"
	default:
		return "uuids"
	}
}

// AddFavorite posts one id per call; Tidal's favorites endpoints have no
// batch form.
func (t *TidalCatalog) AddFavorite(ctx context.Context, account *models.Account, typ models.ItemType, ids []string) error {
	endpoint := fmt.Sprintf("%s/users/%s/favorites/%s", t.apiBase, account.UserID, typ)
	header := bearerHeader(account.Token)
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	for _, id := range ids {
		form := url.Values{tidalIDParam(typ): {id}}
		if err := t.doJSON(ctx, http.MethodPost, endpoint, header, []byte(form.Encode()), nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *TidalCatalog) CreatePlaylist(ctx context.Context, account *models.Account, name, description string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/playlists", t.apiBase, account.UserID)
	header := bearerHeader(account.Token)
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	form := url.Values{"title": {name}, "description": {description}}

	var created struct {
		UUID string `json:"uuid"`
	}
	if err := t.doJSON(ctx, http.MethodPost, endpoint, header, []byte(form.Encode()), &created); err != nil {
		return "", err
	}
	if created.UUID == "" {
		return "", fmt.Errorf("tidal returned no playlist uuid")
	}
	return created.UUID, nil
}

func (t *TidalCatalog) AddPlaylistTracks(ctx context.Context, account *models.Account, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("%s/playlists/%s/items", t.apiBase, playlistID)
	header := bearerHeader(account.Token)
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	for start := 0; start < len(trackIDs); start += tidalPlaylistBatch {
		end := min(start+tidalPlaylistBatch, len(trackIDs))
		form := url.Values{
			"trackIds":           {strings.Join(trackIDs[start:end], ",")},
			"onArtifactNotFound": {"SKIP"},
		}
		if err := t.doJSON(ctx, http.MethodPost, endpoint, header, []byte(form.Encode()), nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *TidalCatalog) PlaylistTracks(ctx context.Context, account *models.Account, playlistID string) ([]models.Item, error) {
	var items []models.Item
	for offset := 0; ; offset += tidalPageSize {
		endpoint := fmt.Sprintf("%s/playlists/%s/tracks?offset=%d&limit=%d", t.apiBase, playlistID, offset, tidalPageSize)

		var page tidalEntityPage
		if err := t.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
			return nil, err
		}

		for i := range page.Items {
			items = append(items, page.Items[i].toItem())
		}

		if len(page.Items) < tidalPageSize {
			break
		}
	}
	return items, nil
}
