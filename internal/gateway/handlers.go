// Package gateway implements the HTTP surface of spec.md §4: the Request
// Router's handlers, the Request State they seed, and the Chunk Pump that
// streams it back out.
package gateway

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dcos/journal-gatewayd/internal/hostinfo"
	"github.com/dcos/journal-gatewayd/internal/journal"
)

const chunkSize = 4096

// Gateway holds the process-global, read-only configuration every handler
// needs: the document root /browse serves its static asset from. Everything
// else (the journal handle, pagination state) lives in a requestState
// scoped to a single connection.
type Gateway struct {
	DocRoot string
}

func writeError(w http.ResponseWriter, code int, err error) {
	logrus.Error(err)
	http.Error(w, err.Error(), code)
}

// RootHandler implements spec.md §4.1's "/" route: a 301 to /browse whose
// body contains a visible link (spec.md §8 scenario 1, supplemented from
// original_source — see SPEC_FULL.md §7.2).
func (g *Gateway) RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Location", "/browse")
	w.WriteHeader(http.StatusMovedPermanently)
	fmt.Fprint(w, `<html><body><a href="/browse">/browse</a></body></html>`)
}

// BrowseHandler serves the static browse.html asset from the configured
// document root (spec.md §4.1).
func (g *Gateway) BrowseHandler(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(g.DocRoot, "browse.html")
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("browse.html not found: %w", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html")
	if _, err := io.Copy(w, f); err != nil {
		logrus.Errorf("serving browse.html: %v", err)
	}
}

// EntriesHandler implements spec.md §4.4.
func (g *Gateway) EntriesHandler(w http.ResponseWriter, r *http.Request) {
	reader, err := journal.Open(true, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("opening journal: %w", err))
		return
	}

	state := &requestState{kind: streamEntries, reader: reader, ctx: r.Context()}

	state.mode = parseAccept(r)

	rng, err := parseRange(r)
	if err != nil {
		state.Close()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state.cursor = rng.cursor
	state.nSkip = rng.nSkip
	state.nEntries, state.nEntriesSet = rng.nEntries, rng.nEntriesSet

	q, err := parseQuery(r)
	if err != nil {
		state.Close()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state.follow = q.follow
	state.discrete = q.discrete
	for _, m := range q.matches {
		if err := reader.AddMatch(m.Key, m.Value); err != nil {
			state.Close()
			writeError(w, http.StatusBadRequest, fmt.Errorf("adding match %s=%s: %w", m.Key, m.Value, err))
			return
		}
	}

	if state.discrete && state.cursor == "" {
		state.Close()
		writeError(w, http.StatusBadRequest, errors.New("discrete mode requires a cursor"))
		return
	}
	if state.discrete {
		state.nEntries, state.nEntriesSet = 1, true
	}

	switch {
	case state.cursor != "":
		if err := reader.SeekCursor(state.cursor); err != nil {
			state.Close()
			writeError(w, http.StatusBadRequest, fmt.Errorf("seeking cursor: %w", err))
			return
		}
	case state.nSkip >= 0:
		if err := reader.SeekHead(); err != nil {
			state.Close()
			writeError(w, http.StatusBadRequest, fmt.Errorf("seeking head: %w", err))
			return
		}
	default:
		if err := reader.SeekTail(); err != nil {
			state.Close()
			writeError(w, http.StatusBadRequest, fmt.Errorf("seeking tail: %w", err))
			return
		}
	}

	w.Header().Set("Content-Type", state.mode.MimeType())
	w.WriteHeader(http.StatusOK)
	pump(w, state)
}

// FieldsHandler implements spec.md §4.5.
func (g *Gateway) FieldsHandler(w http.ResponseWriter, r *http.Request) {
	field := mux.Vars(r)["name"]

	reader, err := journal.Open(true, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("opening journal: %w", err))
		return
	}

	mode := parseAccept(r)

	values, err := reader.UniqueValues(field)
	if err != nil {
		reader.Close()
		writeError(w, http.StatusInternalServerError, fmt.Errorf("querying unique values for %s: %w", field, err))
		return
	}

	state := &requestState{
		kind:        streamFields,
		reader:      reader,
		mode:        mode,
		fieldName:   field,
		fieldValues: values,
		ctx:         r.Context(),
	}

	contentType := "text/plain"
	if mode == journal.ModeJSON {
		contentType = journal.ModeJSON.MimeType()
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	pump(w, state)
}

// pump drives the Chunk Pump loop: repeatedly Read from state in
// chunkSize-sized pulls, writing and flushing each one immediately so
// follow-mode records reach the client as soon as they are produced
// (spec.md §4.3, testable property 6).
func pump(w http.ResponseWriter, state *requestState) {
	defer state.Close()

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, chunkSize)
	for {
		n, err := state.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				logrus.Errorf("stream terminated: %v", err)
			}
			return
		}
	}
}

// MachineHandler implements spec.md §4.6: a one-shot JSON description of
// the host, combining journal-derived facts with host-derived ones.
func (g *Gateway) MachineHandler(w http.ResponseWriter, r *http.Request) {
	reader, err := journal.Open(true, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("opening journal: %w", err))
		return
	}
	defer reader.Close()

	machineID, err := hostinfo.MachineID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reading machine id: %w", err))
		return
	}
	bootID, err := hostinfo.BootID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reading boot id: %w", err))
		return
	}
	hostname, err := hostinfo.Hostname()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reading hostname: %w", err))
		return
	}
	usage, err := reader.GetUsage()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reading journal usage: %w", err))
		return
	}
	cutoffFrom, cutoffTo, err := reader.GetCutoffRealtimeUsec()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reading journal cutoffs: %w", err))
		return
	}

	body := struct {
		MachineID          string `json:"machine_id"`
		BootID             string `json:"boot_id"`
		Hostname           string `json:"hostname"`
		OSPrettyName       string `json:"os_pretty_name"`
		Virtualization     string `json:"virtualization"`
		Usage              string `json:"usage"`
		CutoffFromRealtime string `json:"cutoff_from_realtime"`
		CutoffToRealtime   string `json:"cutoff_to_realtime"`
	}{
		MachineID:          machineID,
		BootID:             bootID,
		Hostname:           hostname,
		OSPrettyName:       hostinfo.OSPrettyName(),
		Virtualization:     hostinfo.Virtualization(),
		Usage:              strconv.FormatUint(usage, 10),
		CutoffFromRealtime: strconv.FormatUint(cutoffFrom, 10),
		CutoffToRealtime:   strconv.FormatUint(cutoffTo, 10),
	}

	w.Header().Set("Content-Type", "application/json")
	bw := bufio.NewWriter(w)
	if err := json.NewEncoder(bw).Encode(body); err != nil {
		logrus.Errorf("encoding machine response: %v", err)
		return
	}
	bw.Flush()
}
