package providers

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyOAuthConfig builds the authorization-code config for the
// scopes the transfer engine needs: reading the library on a source
// account and writing favorites, follows and playlists on a target.
func SpotifyOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-library-read",
			"user-library-modify",
			"user-follow-read",
			"user-follow-modify",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// Me resolves the profile behind an access token into an account.
func (s *SpotifyCatalog) Me(ctx context.Context, token string) (*models.Account, error) {
	var profile struct {
		ID string `json:"id"`
	}
	if err := s.doJSON(ctx, http.MethodGet, s.apiBase+"/me", bearerHeader(token), nil, &profile); err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: profile carries no user id", shared.ErrAuthFailed)
	}
	return &models.Account{Provider: models.Spotify, UserID: profile.ID, Token: token}, nil
}
