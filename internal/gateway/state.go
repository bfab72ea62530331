package gateway

import (
	"bytes"
	"context"

	"github.com/dcos/journal-gatewayd/internal/journal"
)

// streamKind distinguishes the two things a requestState can pump: journal
// entries (§4.4) or distinct field values (§4.5). Each connection serves
// exactly one.
type streamKind int

const (
	streamEntries streamKind = iota
	streamFields
)

// cursorDriver is the narrow slice of *journal.Reader the Chunk Pump
// needs to advance and read the current entry. Pulling it out as an
// interface (rather than storing *journal.Reader directly) lets pump_test.go
// exercise the pagination/follow/discrete algorithm of spec.md §4.3 against
// a fake, without a real systemd journal.
type cursorDriver interface {
	Next() (bool, error)
	NextSkip(n uint64) (bool, error)
	PreviousSkip(n uint64) (bool, error)
	Wait(ctx context.Context) error
	TestCursor(cursor string) (bool, error)
	GetEntry() (*journal.Entry, error)
	Close() error
}

// requestState is the per-connection mutable state described by spec.md §3.
// Its lifetime is tied to one HTTP connection: created when the handler
// first runs, released when the handler returns (Go's net/http calls the
// handler once per request and tears the connection state down on return,
// which is this rewrite's completion callback).
type requestState struct {
	kind   streamKind
	reader cursorDriver
	mode   journal.OutputMode

	cursor      string
	nSkip       int64
	nEntries    uint64
	nEntriesSet bool
	follow      bool
	discrete    bool

	nFields    uint64
	nFieldsSet bool

	// fields-mode enumeration state.
	fieldName   string
	fieldValues []string
	fieldIdx    int

	// spill is the scratch buffer holding exactly one serialized record
	// at a time (spec.md §3's "spill" buffer), rewound (via Reset) rather
	// than reallocated between records.
	spill *bytes.Buffer
	// delta/size are kept for fidelity with spec.md's data model even
	// though the push loop in pump() never needs to answer an
	// externally supplied byte offset: delta is the cumulative number of
	// bytes emitted before the current record, size is the current
	// record's length. See SPEC_FULL.md §5.1.
	delta uint64
	size  uint64

	ctx context.Context
}

// Close releases the journal handle. Safe to call multiple times.
func (s *requestState) Close() error {
	if s == nil || s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	return err
}
