package server

import (
	"net/http"
	"strings"
)

// BasicRouter serves the callback server's routes from an [http.ServeMux] using method-qualified patterns.
//
// Middleware wraps the whole mux, so unmatched and rejected requests pass through it as well.
type BasicRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewBasicRouter returns an empty router.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first added runs outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle registers handler for "METHOD /path". Other methods on the same path get 405 from the mux.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(strings.ToUpper(method)+" "+path, handler)
}

// Handler registers every route of h for GET, the only method a browser redirect uses.
func (r *BasicRouter) Handler(h Handler) {
	for _, route := range h.Routes() {
		r.Handle(http.MethodGet, route, h)
	}
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var next http.Handler = r.mux
	for i := len(r.chain) - 1; i >= 0; i-- {
		next = r.chain[i](next)
	}
	next.ServeHTTP(w, req)
}
