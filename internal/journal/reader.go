// Package journal wraps the systemd journal in the small set of primitives
// the gateway's cursor driver needs: open/close, seek, advance, wait, match
// and the two metadata queries (disk usage, realtime cutoffs). It is the
// "journal-reader library" collaborator described by the gateway spec; the
// gateway itself never touches sdjournal directly.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"
)

// ErrNoMoreEntries names the case where the journal has no further entry
// in the requested direction. Next, NextSkip and PreviousSkip do not return
// it: they report that case as ok == false with a nil error.
var ErrNoMoreEntries = errors.New("journal: no more entries")

// Reader is a thin, single-connection-owned handle onto the local systemd
// journal. It is not safe for concurrent use by multiple goroutines; each
// HTTP connection owns exactly one Reader.
type Reader struct {
	j *sdjournal.Journal
}

// Open opens the local, system-wide journal. go-systemd's NewJournal always
// opens with the equivalent of SD_JOURNAL_LOCAL_ONLY|SD_JOURNAL_SYSTEM_ONLY
// baked in, so the two booleans mirror the C API's open() signature for
// documentation purposes without being separately selectable here.
func Open(localOnly, systemOnly bool) (*Reader, error) {
	j, err := sdjournal.NewJournal()
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Reader{j: j}, nil
}

// Close releases the underlying journal handle. Safe to call on a nil
// Reader, matching the teardown-in-completion-callback contract where a
// Reader may never have been opened at all.
func (r *Reader) Close() error {
	if r == nil || r.j == nil {
		return nil
	}
	return r.j.Close()
}

// SeekHead moves the read position before the oldest entry.
func (r *Reader) SeekHead() error {
	return r.j.SeekHead()
}

// SeekTail moves the read position after the newest entry.
func (r *Reader) SeekTail() error {
	return r.j.SeekTail()
}

// SeekCursor moves the read position to the entry identified by cursor.
// It does not itself verify the cursor resolved to a real entry; callers
// that need that guarantee should follow with Next and TestCursor, the
// same two-step dance the teacher's reader performs.
func (r *Reader) SeekCursor(cursor string) error {
	if err := validateCursor(cursor); err != nil {
		return fmt.Errorf("malformed cursor: %w", err)
	}
	return r.j.SeekCursor(cursor)
}

// TestCursor reports whether the current read position is the entry
// identified by cursor. It is implemented via GetEntry rather than
// sdjournal's own TestCursor binding: the underlying sd_journal_test_cursor
// returns a non-nil error both when the position simply doesn't match
// (C return value 0) and on a genuine failure (return value < 0), and the
// Go binding does not expose which case occurred. Collapsing those would
// turn a discrete request's ordinary "cursor not found here" into a
// request-ending error instead of the clean end-of-stream spec.md
// requires, so the match is tested directly against the decoded entry's
// own Cursor field instead.
func (r *Reader) TestCursor(cursor string) (bool, error) {
	entry, err := r.j.GetEntry()
	if err != nil {
		return false, err
	}
	return entry.Cursor == cursor, nil
}

// Next advances one entry forward. ok is false when the journal has no
// further entry (end of stream, not an error).
func (r *Reader) Next() (ok bool, err error) {
	n, err := r.j.Next()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NextSkip advances up to n entries forward in one call. A skip landing
// near the end of the journal may advance fewer than n entries; matching
// the original (journal-gatewayd.c's skip handling), any positive advance
// counts as success and lands the reader on the entry it reached, and only
// an advance of zero ends the stream.
func (r *Reader) NextSkip(n uint64) (ok bool, err error) {
	c, err := r.j.NextSkip(n)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// PreviousSkip moves up to n entries backward in one call, with the same
// partial-advance-still-succeeds semantics as NextSkip.
func (r *Reader) PreviousSkip(n uint64) (ok bool, err error) {
	c, err := r.j.PreviousSkip(n)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Wait blocks until either new data is appended to the journal or ctx is
// cancelled (client disconnect, shutdown). It returns nil once there may be
// new data to read, or ctx.Err() if cancelled first.
func (r *Reader) Wait(ctx context.Context) error {
	const pollInterval = 2 * time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		switch r.j.Wait(pollInterval) {
		case sdjournal.SD_JOURNAL_APPEND, sdjournal.SD_JOURNAL_INVALIDATE:
			return nil
		case sdjournal.SD_JOURNAL_NOP:
			continue
		}
	}
}

// AddMatch adds a KEY=VALUE match. Matches added without an intervening
// disjunction intersect (spec: "multiple matches intersect").
func (r *Reader) AddMatch(key, value string) error {
	if key == "" {
		return errors.New("match key cannot be empty")
	}
	return r.j.AddMatch(key + "=" + value)
}

// Entry is the decoded record returned by GetEntry, re-exported from
// sdjournal so callers outside this package never import sdjournal
// directly.
type Entry = sdjournal.JournalEntry

// GetEntry returns the full decoded entry at the current read position.
func (r *Reader) GetEntry() (*Entry, error) {
	return r.j.GetEntry()
}

// GetUsage returns the total on-disk size, in bytes, of the journal files
// backing this handle.
func (r *Reader) GetUsage() (uint64, error) {
	return r.j.GetUsage()
}

// GetCutoffRealtimeUsec returns the realtime timestamps, in microseconds
// since the epoch, of the oldest and newest entries the journal knows
// about.
func (r *Reader) GetCutoffRealtimeUsec() (from, to uint64, err error) {
	return r.j.GetCutoffRealtimeUsec()
}

// UniqueValues backs /fields: it fetches every distinct value of a field,
// in the order the journal
// indexes return them. go-systemd's binding surfaces sd_journal_query_unique
// and sd_journal_enumerate_unique as a single batch call rather than a
// C-style enumerator, so this collapses both spec primitives into one
// round trip and the gateway iterates the result in memory.
func (r *Reader) UniqueValues(field string) ([]string, error) {
	if field == "" {
		return nil, errors.New("field name cannot be empty")
	}
	return r.j.GetUniqueValues(field)
}
