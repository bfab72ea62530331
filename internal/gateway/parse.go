// Argument & header parsing (spec.md §4.2): translates the Accept header,
// the Range header, and query-string matches into a requestState.
package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dcos/journal-gatewayd/internal/hostinfo"
	"github.com/dcos/journal-gatewayd/internal/journal"
)

// match is one KEY=VALUE journal filter constraint.
type match struct {
	Key, Value string
}

const rangePrefix = "entries="

// parseAccept selects the OutputMode from the Accept header.
func parseAccept(r *http.Request) journal.OutputMode {
	return journal.ModeFromAccept(r.Header.Get("Accept"))
}

// rangeSelector is the decoded form of a Range: entries=... header.
type rangeSelector struct {
	cursor      string
	nSkip       int64
	nEntries    uint64
	nEntriesSet bool
}

// parseRange parses the Range header per spec.md §4.2. A Range header that
// is absent, or that does not begin with "entries=", is treated as if no
// Range header were sent at all (the zero rangeSelector).
func parseRange(r *http.Request) (rangeSelector, error) {
	header := r.Header.Get("Range")
	if header == "" || !strings.HasPrefix(header, rangePrefix) {
		return rangeSelector{}, nil
	}

	rest := strings.TrimLeft(header[len(rangePrefix):], " \t")

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		// "<cursor>" only: unbounded, zero skip.
		return rangeSelector{cursor: trimCursor(rest)}, nil
	}

	var sel rangeSelector
	tail := rest[colon+1:]

	colon2 := strings.IndexByte(tail, ':')
	countField := tail
	if colon2 >= 0 {
		// "<cursor>:<n_skip>:<n_entries>": only the three-field form
		// carries a skip.
		skipField := tail[:colon2]
		skip, err := strconv.ParseInt(skipField, 10, 64)
		if err != nil {
			return rangeSelector{}, fmt.Errorf("malformed Range n_skip: %w", err)
		}
		sel.nSkip = skip
		countField = tail[colon2+1:]
	}

	if countField != "" {
		n, err := strconv.ParseUint(countField, 10, 64)
		if err != nil {
			return rangeSelector{}, fmt.Errorf("malformed Range n_entries: %w", err)
		}
		if n < 1 {
			return rangeSelector{}, fmt.Errorf("n_entries must be >= 1")
		}
		sel.nEntries, sel.nEntriesSet = n, true
	}

	sel.cursor = trimCursor(rest[:colon])
	return sel, nil
}

// trimCursor applies spec.md §4.2's cursor trimming: trailing whitespace is
// stripped, and an empty result is treated as no cursor at all.
func trimCursor(s string) string {
	return strings.TrimRight(s, " \t")
}

// queryResult is what parseQuery extracts from the request's query string.
type queryResult struct {
	matches  []match
	follow   bool
	discrete bool
}

// parseQuery interprets query parameters as journal matches, with follow,
// discrete and boot handled specially (spec.md §4.2). It is implemented
// against the raw query string rather than url.Values so that an empty key
// is reliably surfaced as an error instead of being silently dropped.
func parseQuery(r *http.Request) (queryResult, error) {
	var res queryResult

	raw := r.URL.RawQuery
	if raw == "" {
		return res, nil
	}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}

		key, value, hasEq := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return queryResult{}, fmt.Errorf("malformed query key %q: %w", key, err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return queryResult{}, fmt.Errorf("malformed query value for %q: %w", key, err)
		}

		if key == "" {
			return queryResult{}, fmt.Errorf("empty query key")
		}

		switch key {
		case "follow":
			b, err := parseBoolArg(value, hasEq)
			if err != nil {
				return queryResult{}, fmt.Errorf("malformed follow argument: %w", err)
			}
			res.follow = b
		case "discrete":
			b, err := parseBoolArg(value, hasEq)
			if err != nil {
				return queryResult{}, fmt.Errorf("malformed discrete argument: %w", err)
			}
			res.discrete = b
		case "boot":
			b, err := parseBoolArg(value, hasEq)
			if err != nil {
				return queryResult{}, fmt.Errorf("malformed boot argument: %w", err)
			}
			if b {
				bootID, err := hostinfo.BootID()
				if err != nil {
					return queryResult{}, fmt.Errorf("resolving current boot id: %w", err)
				}
				res.matches = append(res.matches, match{Key: "_BOOT_ID", Value: bootID})
			}
		default:
			res.matches = append(res.matches, match{Key: key, Value: value})
		}
	}

	return res, nil
}

// parseBoolArg implements "KEY[=bool]": an empty/absent value means true,
// otherwise the value must parse as a Go boolean literal.
func parseBoolArg(value string, hasEq bool) (bool, error) {
	if !hasEq || value == "" {
		return true, nil
	}
	return strconv.ParseBool(value)
}
