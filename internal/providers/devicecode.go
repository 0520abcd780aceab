package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/shared"
)

// DeviceAuth is the provider's response to a device-authorization
// request. The user enters UserCode at the verification URL while we
// poll with DeviceCode.
type DeviceAuth struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri_complete"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// VerificationURL returns the page the user opens to approve the login.
func (d *DeviceAuth) VerificationURL() string {
	if d.VerificationURI != "" {
		if strings.HasPrefix(d.VerificationURI, "http") {
			return d.VerificationURI
		}
		return "https://" + d.VerificationURI
	}
	return "https://link.tidal.com/" + d.UserCode
}

type deviceToken struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RequestDeviceCode starts the Tidal device-code flow.
func (t *TidalCatalog) RequestDeviceCode(ctx context.Context) (*DeviceAuth, error) {
	endpoint := fmt.Sprintf("%s/oauth2/device_authorization?client_id=%s", t.authBase, url.QueryEscape(t.clientID))
	form := url.Values{"client_id": {t.clientID}, "scope": {"r_usr w_usr"}}

	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}

	var auth DeviceAuth
	if err := t.doJSON(ctx, http.MethodPost, endpoint, header, []byte(form.Encode()), &auth); err != nil {
		return nil, fmt.Errorf("device authorization failed: %w", err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" {
		return nil, fmt.Errorf("%w: provider returned no authorization codes", shared.ErrAuthFailed)
	}
	if auth.Interval <= 0 {
		auth.Interval = 5
	}
	if auth.ExpiresIn <= 0 {
		auth.ExpiresIn = 300
	}
	return &auth, nil
}

// PollToken polls the token endpoint until the user approves, the code
// expires or ctx is cancelled. A plain loop with a deadline: one request,
// one sleep, repeat.
func (t *TidalCatalog) PollToken(ctx context.Context, auth *DeviceAuth) (string, error) {
	endpoint := fmt.Sprintf("%s/oauth2/token?client_id=%s", t.authBase, url.QueryEscape(t.clientID))
	form := url.Values{
		"client_id":   {t.clientID},
		"device_code": {auth.DeviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}
	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}

	deadline := time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	interval := time.Duration(auth.Interval) * time.Second

	for {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: device authorization expired", shared.ErrTimeout)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}

		resp, err := t.http.Do(ctx, http.MethodPost, endpoint, header, []byte(form.Encode()))
		if err != nil {
			return "", err
		}

		var tok deviceToken
		if err := json.Unmarshal(resp.Body, &tok); err != nil {
			// Proxies occasionally wrap errors in non-JSON bodies; treat as
			// still pending until the deadline says otherwise.
			continue
		}

		switch {
		case tok.AccessToken != "":
			return tok.AccessToken, nil
		case authorizationPending(&tok, resp.Status):
			continue
		default:
			msg := tok.ErrorDescription
			if msg == "" {
				msg = tok.Error
			}
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.Status)
			}
			return "", fmt.Errorf("%w: %s", shared.ErrAuthFailed, msg)
		}
	}
}

// authorizationPending detects the "user has not approved yet" response.
// The error field is authoritative; the description substring and the
// 400 status are fallbacks for proxies that mangle the payload.
func authorizationPending(tok *deviceToken, status int) bool {
	if tok.Error == "authorization_pending" {
		return true
	}
	if strings.Contains(strings.ToLower(tok.ErrorDescription), "pending") {
		return true
	}
	return tok.Error == "" && status == http.StatusBadRequest
}

// Session resolves the numeric user id behind an access token.
func (t *TidalCatalog) Session(ctx context.Context, token string) (*models.Account, error) {
	var session struct {
		UserID json.Number `json:"userId"`
	}
	endpoint := t.apiBase + "/sessions"
	if err := t.doJSON(ctx, http.MethodGet, endpoint, bearerHeader(token), nil, &session); err != nil {
		return nil, err
	}
	if session.UserID.String() == "" {
		return nil, fmt.Errorf("%w: session carries no user id", shared.ErrAuthFailed)
	}
	return &models.Account{Provider: models.Tidal, UserID: session.UserID.String(), Token: token}, nil
}
