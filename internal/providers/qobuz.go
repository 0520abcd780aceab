// Qobuz [Catalog] implementation
//
// Qobuz authenticates with an app id appended to every URL plus a user
// auth token header obtained from a credentials login. Most write
// endpoints are GET requests with query parameters.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
)

const (
	qobuzAPIBase = "https://www.qobuz.com/api.json/0.2"

	qobuzPageSize      = 100
	qobuzSearchLimit   = 5
	qobuzPlaylistBatch = 50
)

// QobuzCatalog implements [Catalog] for Qobuz.
type QobuzCatalog struct {
	base
	appID   string
	apiBase string
}

// NewQobuzCatalog creates a Qobuz adapter with the given application id.
func NewQobuzCatalog(appID string, deps Deps) *QobuzCatalog {
	return &QobuzCatalog{base: newBase(deps), appID: appID, apiBase: qobuzAPIBase}
}

func (q *QobuzCatalog) Name() string              { return "Qobuz" }
func (q *QobuzCatalog) Provider() models.Provider { return models.Qobuz }

// endpoint builds a URL with query params plus the mandatory app_id.
func (q *QobuzCatalog) endpoint(path string, params url.Values) string {
	params.Set("app_id", q.appID)
	return q.apiBase + path + "?" + params.Encode()
}

func qobuzHeader(account *models.Account) http.Header {
	return http.Header{"X-User-Auth-Token": []string{account.Token}}
}

// qobuzEntity covers tracks, albums, artists and playlists.
type qobuzEntity struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	Name      string      `json:"name"`
	Performer *struct {
		Name string `json:"name"`
	} `json:"performer"`
	Artist *struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album *struct {
		Title string `json:"title"`
	} `json:"album"`
}

func (e *qobuzEntity) toItem() models.Item {
	item := models.Item{ID: e.ID.String(), Name: e.Title}
	if item.Name == "" {
		item.Name = e.Name
	}
	if e.Performer != nil {
		item.Artists = append(item.Artists, e.Performer.Name)
	} else if e.Artist != nil {
		item.Artists = append(item.Artists, e.Artist.Name)
	}
	if e.Album != nil {
		item.Album = e.Album.Title
	}
	return item
}

// Login exchanges Qobuz credentials for a user auth token and id.
func (q *QobuzCatalog) Login(ctx context.Context, email, password string) (*models.Account, error) {
	endpoint := q.endpoint("/user/login", url.Values{
		"username": {email},
		"password": {password},
	})

	var resp struct {
		UserAuthToken string `json:"user_auth_token"`
		User          struct {
			ID json.Number `json:"id"`
		} `json:"user"`
	}
	if err := q.doJSON(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if resp.UserAuthToken == "" {
		return nil, fmt.Errorf("%w: no auth token in login response", shared.ErrAuthFailed)
	}

	return &models.Account{
		Provider: models.Qobuz,
		UserID:   resp.User.ID.String(),
		Token:    resp.UserAuthToken,
	}, nil
}

// qobuzSingular maps an item type to Qobuz's singular type parameter.
func qobuzSingular(typ models.ItemType) string {
	return strings.TrimSuffix(string(typ), "s")
}

func (q *QobuzCatalog) ListFavorites(ctx context.Context, account *models.Account, typ models.ItemType) ([]models.Item, error) {
	if typ == models.Playlists {
		return q.listPlaylists(ctx, account)
	}

	var items []models.Item
	for offset := 0; ; offset += qobuzPageSize {
		endpoint := q.endpoint("/favorite/getUserFavorites", url.Values{
			"user_id": {account.UserID},
			"type":    {string(typ)},
			"limit":   {fmt.Sprint(qobuzPageSize)},
			"offset":  {fmt.Sprint(offset)},
		})

		// Entities sit under a collection keyed by the plural type name.
		var resp map[string]struct {
			Items []qobuzEntity `json:"items"`
		}
		if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, &resp); err != nil {
			if terr := tolerateMissing(err); terr == nil {
				return []models.Item{}, nil
			}
			return nil, err
		}

		page := resp[string(typ)].Items
		for i := range page {
			items = append(items, page[i].toItem())
		}

		if len(page) < qobuzPageSize {
			break
		}
	}
	return items, nil
}

func (q *QobuzCatalog) listPlaylists(ctx context.Context, account *models.Account) ([]models.Item, error) {
	var items []models.Item
	for offset := 0; ; offset += qobuzPageSize {
		endpoint := q.endpoint("/playlist/getUserPlaylists", url.Values{
			"user_id": {account.UserID},
			"limit":   {fmt.Sprint(qobuzPageSize)},
			"offset":  {fmt.Sprint(offset)},
		})

		var resp struct {
			Playlists struct {
				Items []qobuzEntity `json:"items"`
			} `json:"playlists"`
		}
		if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, &resp); err != nil {
			if terr := tolerateMissing(err); terr == nil {
				return []models.Item{}, nil
			}
			return nil, err
		}

		for i := range resp.Playlists.Items {
			items = append(items, resp.Playlists.Items[i].toItem())
		}

		if len(resp.Playlists.Items) < qobuzPageSize {
			break
		}
	}
	return items, nil
}

func (q *QobuzCatalog) Search(ctx context.Context, account *models.Account, query string, typ models.ItemType) ([]models.Candidate, error) {
	endpoint := q.endpoint("/catalog/search", url.Values{
		"query": {query},
		"type":  {string(typ)},
		"limit": {fmt.Sprint(qobuzSearchLimit)},
	})

	var resp map[string]struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, &resp); err != nil {
		return nil, err
	}

	raws := resp[string(typ)].Items
	candidates := make([]models.Candidate, 0, len(raws))
	for _, raw := range raws {
		var e qobuzEntity
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		candidates = append(candidates, models.Candidate{Item: e.toItem(), Raw: raw})
	}
	return candidates, nil
}

func (q *QobuzCatalog) AddFavorite(ctx context.Context, account *models.Account, typ models.ItemType, ids []string) error {
	if typ == models.Playlists {
		// Saving someone else's playlist is a subscription on Qobuz.
		for _, id := range ids {
			endpoint := q.endpoint("/playlist/subscribe", url.Values{"playlist_id": {id}})
			if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, nil); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range ids {
		endpoint := q.endpoint("/favorite/create", url.Values{
			"user_id": {account.UserID},
			"item_id": {id},
			"type":    {qobuzSingular(typ)},
		})
		if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (q *QobuzCatalog) CreatePlaylist(ctx context.Context, account *models.Account, name, description string) (string, error) {
	endpoint := q.endpoint("/playlist/create", url.Values{
		"name":        {name},
		"description": {description},
	})

	var created struct {
		ID json.Number `json:"id"`
	}
	if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, &created); err != nil {
		return "", err
	}
	if created.ID.String() == "" {
		return "", fmt.Errorf("qobuz returned no playlist id")
	}
	return created.ID.String(), nil
}

func (q *QobuzCatalog) AddPlaylistTracks(ctx context.Context, account *models.Account, playlistID string, trackIDs []string) error {
	for start := 0; start < len(trackIDs); start += qobuzPlaylistBatch {
		end := min(start+qobuzPlaylistBatch, len(trackIDs))
		endpoint := q.endpoint("/playlist/addTracks", url.Values{
			"playlist_id": {playlistID},
			"track_ids":   {strings.Join(trackIDs[start:end], ",")},
		})
		if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (q *QobuzCatalog) PlaylistTracks(ctx context.Context, account *models.Account, playlistID string) ([]models.Item, error) {
	var items []models.Item
	for offset := 0; ; offset += qobuzPageSize {
		endpoint := q.endpoint("/playlist/get", url.Values{
			"playlist_id": {playlistID},
			"extra":       {"tracks"},
			"limit":       {fmt.Sprint(qobuzPageSize)},
			"offset":      {fmt.Sprint(offset)},
		})

		var resp struct {
			Tracks struct {
				Items []qobuzEntity `json:"items"`
			} `json:"tracks"`
		}
		if err := q.doJSON(ctx, http.MethodGet, endpoint, qobuzHeader(account), nil, &resp); err != nil {
			return nil, err
		}

		for i := range resp.Tracks.Items {
			items = append(items, resp.Tracks.Items[i].toItem())
		}

		if len(resp.Tracks.Items) < qobuzPageSize {
			break
		}
	}
	return items, nil
}
