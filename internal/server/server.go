package server

import (
	"net/http"
)

// Middleware wraps an [http.Handler] with additional behavior such as
// request logging.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that also declares the path patterns it
// serves, so a handler can register all of its routes in one call.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and middleware and serves the result.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
