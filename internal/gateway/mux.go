package gateway

import (
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/dcos/journal-gatewayd/internal/router"
)

// Mux builds the gateway's complete *mux.Router (spec.md §4.1 and §6.1).
//
// /entries and /fields stream their bodies one record at a time as they
// come off the journal (spec.md §4.3's follow-mode invariant); gzipping
// them would force gorilla/handlers to buffer the whole response before
// the client sees a byte, so they are served uncompressed. /browse and
// /machine have no such invariant - they are single, complete bodies - so
// they're wrapped in the teacher's own gzip middleware.
func Mux(g *Gateway) http.Handler {
	routes := []router.Route{
		{Path: "/", Handler: g.RootHandler},
		{Path: "/browse", Handler: gzipped(g.BrowseHandler)},
		{Path: "/entries", Handler: g.EntriesHandler},
		{Path: "/fields/{name}", Handler: g.FieldsHandler},
		{Path: "/machine", Handler: gzipped(g.MachineHandler)},
	}
	return router.New(routes)
}

// gzipped wraps a non-streaming handler with gorilla/handlers' content
// negotiated gzip compression.
func gzipped(h http.HandlerFunc) http.HandlerFunc {
	return handlers.CompressHandler(h).ServeHTTP
}
