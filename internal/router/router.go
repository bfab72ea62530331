// Package router builds the gateway's HTTP router. Unlike the teacher's
// router package, which dispatches on URL *and* Accept header (so each
// content type gets its own registered route), this gateway dispatches on
// URL and method only: spec.md's Argument & Header Parser (§4.2) owns
// Accept negotiation inside the handler, not the router. The router's job
// here is exactly spec.md §4.1's Request Router.
package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Route describes one URL pattern and its handler, mirroring the shape the
// teacher's router.Route uses so routes stay declarative.
type Route struct {
	// Path is a gorilla/mux path pattern, e.g. "/fields/{name}".
	Path string
	// Handler serves the route. Only GET is ever registered (spec.md §6.1:
	// "All endpoints are GET").
	Handler http.HandlerFunc
}

// New builds a *mux.Router serving routes, wrapping every handler with the
// recovery and access-log middleware every route needs.
func New(routes []Route) *mux.Router {
	r := mux.NewRouter().StrictSlash(false)
	for _, route := range routes {
		r.Path(route.Path).Methods(http.MethodGet).Handler(wrap(route.Handler))
	}
	r.NotFoundHandler = wrap(notFound)
	r.MethodNotAllowedHandler = wrap(methodNotAllowed)
	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	// spec.md §4.1: "Rejects any method other than GET by signalling
	// refuse connection" — the closest stock HTTP status for that is 405.
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

// wrap installs the two pieces of ambient behavior every route needs: a
// panic/OOM recovery that turns an allocation failure into the canned 503
// spec.md §6.1 and §7 require, and a debug-level access log entry.
func wrap(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.Errorf("panic serving %s: %v", r.URL.Path, rec)
				http.Error(w, "Out of memory.\n", http.StatusServiceUnavailable)
			}
		}()
		logrus.Debugf("%s %s", r.Method, r.URL.RequestURI())
		next(w, r)
	})
}
