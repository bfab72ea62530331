package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// OutputMode is the tagged variant over the four response encodings the
// gateway can negotiate (spec.md §3).
type OutputMode int

const (
	// ModeShort is the default: one human-readable line per entry.
	ModeShort OutputMode = iota
	// ModeJSON emits one JSON object per entry, newline-terminated.
	ModeJSON
	// ModeJSONSSE emits ModeJSON entries framed as Server-Sent Events.
	ModeJSONSSE
	// ModeExport emits the systemd binary journal export format.
	ModeExport
)

// MimeType returns the Content-Type this mode advertises (spec.md §6.1).
func (m OutputMode) MimeType() string {
	switch m {
	case ModeJSON:
		return "application/json"
	case ModeJSONSSE:
		return "text/event-stream"
	case ModeExport:
		return "application/vnd.fdo.journal"
	default:
		return "text/plain"
	}
}

// ModeFromAccept selects an OutputMode by exact match against the mode
// table. Anything unrecognized or absent falls back to ModeShort, per
// spec.md §4.2 and testable property 9.
func ModeFromAccept(accept string) OutputMode {
	switch accept {
	case ModeJSON.MimeType():
		return ModeJSON
	case ModeJSONSSE.MimeType():
		return ModeJSONSSE
	case ModeExport.MimeType():
		return ModeExport
	default:
		return ModeShort
	}
}

// FormatEntry serializes one journal entry in the negotiated mode and
// returns the complete byte record (spec.md §4's "Entry Serializer").
func FormatEntry(mode OutputMode, e *Entry) ([]byte, error) {
	switch mode {
	case ModeJSON:
		return formatJSON(e)
	case ModeJSONSSE:
		return formatSSE(e)
	case ModeExport:
		return formatExport(e)
	default:
		return formatShort(e)
	}
}

func formatShort(e *Entry) ([]byte, error) {
	t := time.Unix(0, int64(e.RealtimeTimestamp)*int64(time.Microsecond))
	hostname := e.Fields["_HOSTNAME"]
	ident := e.Fields["SYSLOG_IDENTIFIER"]
	pid := e.Fields["_PID"]
	message := e.Fields["MESSAGE"]

	var line string
	if pid != "" {
		line = fmt.Sprintf("%s %s %s[%s]: %s\n", t.Format(time.Stamp), hostname, ident, pid, message)
	} else {
		line = fmt.Sprintf("%s %s %s: %s\n", t.Format(time.Stamp), hostname, ident, message)
	}
	return []byte(line), nil
}

type jsonEntry struct {
	Cursor             string
	RealtimeTimestamp  uint64
	MonotonicTimestamp uint64
	Fields             map[string]string
}

func (j jsonEntry) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(j.Fields)+3)
	for k, v := range j.Fields {
		flat[k] = v
	}
	flat["__CURSOR"] = j.Cursor
	flat["__REALTIME_TIMESTAMP"] = strconv.FormatUint(j.RealtimeTimestamp, 10)
	flat["__MONOTONIC_TIMESTAMP"] = strconv.FormatUint(j.MonotonicTimestamp, 10)
	return json.Marshal(flat)
}

func formatJSON(e *Entry) ([]byte, error) {
	b, err := json.Marshal(jsonEntry{
		Cursor:             e.Cursor,
		RealtimeTimestamp:  e.RealtimeTimestamp,
		MonotonicTimestamp: e.MonotonicTimestamp,
		Fields:             e.Fields,
	})
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func formatSSE(e *Entry) ([]byte, error) {
	b, err := formatJSON(e)
	if err != nil {
		return nil, err
	}
	// strip the trailing newline formatJSON added so we can frame it
	// properly as a single SSE "data:" line terminated by a blank line.
	b = b[:len(b)-1]
	out := make([]byte, 0, len(b)+len("id: \n")+len(e.Cursor)+len("data: \n\n"))
	out = append(out, []byte("id: "+e.Cursor+"\n")...)
	out = append(out, []byte("data: ")...)
	out = append(out, b...)
	out = append(out, '\n', '\n')
	return out, nil
}

// formatExport writes one record in systemd's journal export wire format:
// each field as "NAME=value\n" when value has no embedded newline, or as
// "NAME\n" followed by an 8-byte little-endian length and the raw value
// otherwise; the entry is terminated by a blank line.
func formatExport(e *Entry) ([]byte, error) {
	var out []byte
	out = append(out, []byte("__CURSOR="+e.Cursor+"\n")...)
	out = append(out, []byte("__REALTIME_TIMESTAMP="+strconv.FormatUint(e.RealtimeTimestamp, 10)+"\n")...)
	out = append(out, []byte("__MONOTONIC_TIMESTAMP="+strconv.FormatUint(e.MonotonicTimestamp, 10)+"\n")...)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := e.Fields[k]
		out = append(out, exportField(k, v)...)
	}
	out = append(out, '\n')
	return out, nil
}

func exportField(name, value string) []byte {
	if !containsByte(value, '\n') {
		return []byte(name + "=" + value + "\n")
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(value)))
	out := make([]byte, 0, len(name)+1+8+len(value)+1)
	out = append(out, []byte(name+"\n")...)
	out = append(out, lenBuf[:]...)
	out = append(out, []byte(value)...)
	out = append(out, '\n')
	return out
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

// FormatFieldValue renders one distinct value from the /fields/<NAME>
// enumeration (spec.md §4.5). JSON mode emits a one-key object per line;
// every other mode degrades to plaintext, matching the spec's resolution
// of the "Open Question" about which modes are legal on /fields.
func FormatFieldValue(mode OutputMode, field, value string) ([]byte, error) {
	if mode == ModeJSON {
		obj := map[string]string{field: value}
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
	return []byte(value + "\n"), nil
}
