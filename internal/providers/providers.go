// Package providers normalizes the favorites, search and write operations
// of Tidal, Qobuz and Spotify behind one capability surface.
//
// A [Catalog] is selected once per account at login time and held as an
// opaque handle; nothing downstream inspects which provider is behind it.
// Each adapter owns its provider's pagination, auth-header shape and
// batch limits, and routes every network call through its rate governor.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/favx/favx/internal/governor"
	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
	"github.com/favx/favx/internal/transport"
)

// Catalog is the uniform provider surface consumed by the transfer
// engine and the matcher.
type Catalog interface {
	// Name returns the human-readable provider name (e.g. "Tidal").
	Name() string

	// Provider returns the provider this catalog fronts.
	Provider() models.Provider

	// ListFavorites fetches the account's full favorites of one type,
	// paginating until the provider signals end of collection. A 403/404
	// means the type has nothing to offer and yields an empty list; a 401
	// propagates as [shared.ErrAuthExpired].
	ListFavorites(ctx context.Context, account *models.Account, t models.ItemType) ([]models.Item, error)

	// Search runs one bounded catalog query. Zero results is an empty
	// list, not an error.
	Search(ctx context.Context, account *models.Account, query string, t models.ItemType) ([]models.Candidate, error)

	// AddFavorite favorites the given ids, chunking to the provider's
	// per-call batch limit. Re-adding an already-favorited id is a no-op
	// success.
	AddFavorite(ctx context.Context, account *models.Account, t models.ItemType, ids []string) error

	// CreatePlaylist creates an empty playlist and returns its id.
	CreatePlaylist(ctx context.Context, account *models.Account, name, description string) (string, error)

	// AddPlaylistTracks inserts tracks into a playlist, chunking to the
	// provider's per-call track limit.
	AddPlaylistTracks(ctx context.Context, account *models.Account, playlistID string, trackIDs []string) error

	// PlaylistTracks fetches a playlist's ordered track list.
	PlaylistTracks(ctx context.Context, account *models.Account, playlistID string) ([]models.Item, error)
}

// Deps bundles the collaborators every adapter needs.
type Deps struct {
	HTTP     *transport.Client
	Governor *governor.Governor
	Logger   *log.Logger
}

// ForProvider constructs the catalog adapter for p. Credentials beyond
// the account token (client ids, app ids) come from cfg.
func ForProvider(p models.Provider, cfg *shared.Config, deps Deps) (Catalog, error) {
	switch p {
	case models.Tidal:
		return NewTidalCatalog(cfg.Credentials.Tidal.ClientID, deps), nil
	case models.Qobuz:
		return NewQobuzCatalog(cfg.Credentials.Qobuz.AppID, deps), nil
	case models.Spotify:
		return NewSpotifyCatalog(deps), nil
	default:
		return nil, fmt.Errorf("%w: no adapter for provider %q", shared.ErrInvalidInput, p)
	}
}

// base carries the plumbing shared by all three adapters.
type base struct {
	http   *transport.Client
	gov    *governor.Governor
	logger *log.Logger
}

func newBase(deps Deps) base {
	if deps.HTTP == nil {
		deps.HTTP = transport.NewClient(nil, nil)
	}
	if deps.Governor == nil {
		deps.Governor = governor.New(governor.Opts{})
	}
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	return base{http: deps.HTTP, gov: deps.Governor, logger: deps.Logger}
}

// doJSON performs one governed request and decodes a JSON body into out
// when the status is 2xx.
func (b *base) doJSON(ctx context.Context, method, url string, header http.Header, body []byte, out any) error {
	return b.gov.Do(ctx, func(ctx context.Context) error {
		resp, err := b.http.Do(ctx, method, url, header, body)
		if err != nil {
			return err
		}
		if err := classify(resp); err != nil {
			return err
		}
		if out != nil && len(resp.Body) > 0 {
			if err := json.Unmarshal(resp.Body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

// classify maps a response status onto the error taxonomy.
func classify(resp *transport.Response) error {
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		return nil
	case resp.Status == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrAuthExpired)
	case resp.Status == http.StatusTooManyRequests:
		return &shared.RateLimitError{RetryAfter: retryAfter(resp.Header)}
	default:
		body := string(resp.Body)
		if len(body) > 200 {
			body = body[:200]
		}
		return &shared.StatusError{Code: resp.Status, Body: body}
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// tolerateMissing converts 403/404 list errors into an empty result:
// the account simply has nothing of that type to offer.
func tolerateMissing(err error) error {
	var se *shared.StatusError
	if errors.As(err, &se) && (se.Code == http.StatusForbidden || se.Code == http.StatusNotFound) {
		return nil
	}
	return err
}

func bearerHeader(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}
