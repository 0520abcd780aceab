// Package server hosts the loopback HTTP listener used during Spotify
// authentication.
//
// The authorization-code flow needs a redirect target, so the auth
// command starts a short-lived server on the configured localhost
// redirect URI, registers an [OAuthHandler] for /callback, waits for a
// single result and shuts the server down.
//
// The [Router] interface carries middleware support so the listener can
// grow request logging without touching handlers; [BasicRouter] wraps
// [http.ServeMux] with method filtering.
package server
