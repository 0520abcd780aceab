// Spotify [Catalog] implementation
//
// Spotify paginates with absolute "next" URLs rather than offsets, and
// its library endpoints differ per type: saved tracks and albums live
// under /me, followed artists under /me/following, playlist saves are
// follows.
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
	spotifyAPIBase = "https://api.spotify.com/v1"

	spotifyPageSize      = 50
	spotifySearchLimit   = 10
	spotifyFavoriteBatch = 50
	spotifyPlaylistBatch = 100
)

// SpotifyCatalog implements [Catalog] for Spotify.
type SpotifyCatalog struct {
	base
	apiBase string
}

// NewSpotifyCatalog creates a Spotify adapter. Tokens come from the
// OAuth flow and travel on the account.
func NewSpotifyCatalog(deps Deps) *SpotifyCatalog {
	return &SpotifyCatalog{base: newBase(deps), apiBase: spotifyAPIBase}
}

func (s *SpotifyCatalog) Name() string              { return "Spotify" }
func (s *SpotifyCatalog) Provider() models.Provider { return models.Spotify }

type spotifyEntity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album *struct {
		Name string `json:"name"`
	} `json:"album"`
}

func (e *spotifyEntity) toItem() models.Item {
	item := models.Item{ID: e.ID, Name: e.Name}
	for _, a := range e.Artists {
		item.Artists = append(item.Artists, a.Name)
	}
	if e.Album != nil {
		item.Album = e.Album.Name
	}
	return item
}

// spotifySaved is the wrapper around saved tracks and albums; followed
// artists and playlists come back unwrapped.
type spotifySaved struct {
	Track *spotifyEntity `json:"track"`
	Album *spotifyEntity `json:"album"`
}

func (w *spotifySaved) entity() *spotifyEntity {
	if w.Track != nil {
		return w.Track
	}
	return w.Album
}

func (s *SpotifyCatalog) ListFavorites(ctx context.Context, account *models.Account, typ models.ItemType) ([]models.Item, error) {
	switch typ {
	case models.Tracks:
		return s.listSaved(ctx, account, s.apiBase+"/me/tracks?limit=50")
	case models.Albums:
		return s.listSaved(ctx, account, s.apiBase+"/me/albums?limit=50")
	case models.Artists:
		return s.listFollowedArtists(ctx, account)
	case models.Playlists:
		return s.listPlaylists(ctx, account)
	default:
		return []models.Item{}, nil
	}
}

// listSaved walks a /me/tracks-style collection following next URLs.
func (s *SpotifyCatalog) listSaved(ctx context.Context, account *models.Account, endpoint string) ([]models.Item, error) {
	var items []models.Item
	for endpoint != "" {
		var page struct {
			Items []spotifySaved `json:"items"`
			Next  string         `json:"next"`
		}
		if err := s.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
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
		endpoint = page.Next
	}
	return items, nil
}

func (s *SpotifyCatalog) listFollowedArtists(ctx context.Context, account *models.Account) ([]models.Item, error) {
	endpoint := s.apiBase + "/me/following?type=artist&limit=50"

	var items []models.Item
	for endpoint != "" {
		var page struct {
			Artists struct {
				Items []spotifyEntity `json:"items"`
				Next  string          `json:"next"`
			} `json:"artists"`
		}
		if err := s.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
			if terr := tolerateMissing(err); terr == nil {
				return []models.Item{}, nil
			}
			return nil, err
		}
		for i := range page.Artists.Items {
			items = append(items, page.Artists.Items[i].toItem())
		}
		endpoint = page.Artists.Next
	}
	return items, nil
}

func (s *SpotifyCatalog) listPlaylists(ctx context.Context, account *models.Account) ([]models.Item, error) {
	endpoint := s.apiBase + "/me/playlists?limit=50"

	var items []models.Item
	for endpoint != "" {
		var page struct {
			Items []spotifyEntity `json:"items"`
			Next  string          `json:"next"`
		}
		if err := s.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
			if terr := tolerateMissing(err); terr == nil {
				return []models.Item{}, nil
			}
			return nil, err
		}
		for i := range page.Items {
			items = append(items, page.Items[i].toItem())
		}
		endpoint = page.Next
	}
	return items, nil
}

// spotifySearchType maps an item type to the search API's type param.
func spotifySearchType(typ models.ItemType) string {
	return strings.TrimSuffix(string(typ), "s")
}

func (s *SpotifyCatalog) Search(ctx context.Context, account *models.Account, query string, typ models.ItemType) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&type=%s&limit=%d",
		s.apiBase, url.QueryEscape(query), spotifySearchType(typ), spotifySearchLimit)

	// Results sit under a collection keyed by the plural type name.
	var resp map[string]struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := s.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &resp); err != nil {
		return nil, err
	}

	raws := resp[string(typ)].Items
	candidates := make([]models.Candidate, 0, len(raws))
	for _, raw := range raws {
		var e spotifyEntity
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		candidates = append(candidates, models.Candidate{Item: e.toItem(), Raw: raw})
	}
	return candidates, nil
}

func (s *SpotifyCatalog) AddFavorite(ctx context.Context, account *models.Account, typ models.ItemType, ids []string) error {
	if typ == models.Playlists {
		// Saving a playlist is a follow and takes one call per playlist.
		for _, id := range ids {
			endpoint := fmt.Sprintf("%s/playlists/%s/followers", s.apiBase, id)
			if err := s.doJSON(ctx, http.MethodPut, endpoint, jsonHeader(account.Token), []byte(`{"public":false}`), nil); err != nil {
				return err
			}
		}
		return nil
	}

	for start := 0; start < len(ids); start += spotifyFavoriteBatch {
		end := min(start+spotifyFavoriteBatch, len(ids))
		joined := url.QueryEscape(strings.Join(ids[start:end], ","))

		var endpoint string
		switch typ {
		case models.Tracks:
			endpoint = fmt.Sprintf("%s/me/tracks?ids=%s", s.apiBase, joined)
		case models.Albums:
			endpoint = fmt.Sprintf("%s/me/albums?ids=%s", s.apiBase, joined)
		case models.Artists:
			endpoint = fmt.Sprintf("%s/me/following?type=artist&ids=%s", s.apiBase, joined)
		}
		if err := s.doJSON(ctx, http.MethodPut, endpoint, bearerHeader(account.Token), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *SpotifyCatalog) CreatePlaylist(ctx context.Context, account *models.Account, name, description string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/playlists", s.apiBase, url.PathEscape(account.UserID))

	body, err := json.Marshal(map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	})
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := s.doJSON(ctx, http.MethodPost, endpoint, jsonHeader(account.Token), body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("spotify returned no playlist id")
	}
	return created.ID, nil
}

func (s *SpotifyCatalog) AddPlaylistTracks(ctx context.Context, account *models.Account, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", s.apiBase, playlistID)

	for start := 0; start < len(trackIDs); start += spotifyPlaylistBatch {
		end := min(start+spotifyPlaylistBatch, len(trackIDs))
		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}
		body, err := json.Marshal(map[string]any{"uris": uris})
		if err != nil {
			return err
		}
		if err := s.doJSON(ctx, http.MethodPost, endpoint, jsonHeader(account.Token), body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *SpotifyCatalog) PlaylistTracks(ctx context.Context, account *models.Account, playlistID string) ([]models.Item, error) {
	endpoint := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d", s.apiBase, playlistID, spotifyPageSize)

	var items []models.Item
	for endpoint != "" {
		var page struct {
			Items []spotifySaved `json:"items"`
			Next  string         `json:"next"`
		}
		if err := s.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(account.Token), nil, &page); err != nil {
			return nil, err
		}
		for i := range page.Items {
			if e := page.Items[i].entity(); e != nil {
				items = append(items, e.toItem())
			}
		}
		endpoint = page.Next
	}
	return items, nil
}

func jsonHeader(token string) http.Header {
	h := bearerHeader(token)
	h.Set("Content-Type", "application/json")
	return h
}
