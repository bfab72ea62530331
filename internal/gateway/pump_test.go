package gateway

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dcos/journal-gatewayd/internal/journal"
)

// fakeDriver is a minimal cursorDriver backed by an in-memory slice of
// entries, standing in for a real journal so the Chunk Pump algorithm
// (spec.md §4.3) can be exercised without systemd.
type fakeDriver struct {
	entries []journal.Entry
	pos     int // index of the "current" entry, -1 before the first Next

	// appended is drained by Wait to simulate follow-mode: each Wait call
	// appends the next one of these and returns nil; once drained, Wait
	// blocks until ctx is cancelled.
	appended []journal.Entry
	waited   int
}

func (f *fakeDriver) Next() (bool, error) {
	if f.pos+1 >= len(f.entries) {
		return false, nil
	}
	f.pos++
	return true, nil
}

// NextSkip and PreviousSkip mirror the real Reader's partial-advance
// semantics: they clamp to however many entries remain and report success
// whenever that clamped advance is greater than zero.
func (f *fakeDriver) NextSkip(n uint64) (bool, error) {
	remaining := len(f.entries) - 1 - f.pos
	advance := int(n)
	if advance > remaining {
		advance = remaining
	}
	if advance <= 0 {
		return false, nil
	}
	f.pos += advance
	return true, nil
}

func (f *fakeDriver) PreviousSkip(n uint64) (bool, error) {
	remaining := f.pos
	advance := int(n)
	if advance > remaining {
		advance = remaining
	}
	if advance <= 0 {
		return false, nil
	}
	f.pos -= advance
	return true, nil
}

func (f *fakeDriver) Wait(ctx context.Context) error {
	f.waited++
	if len(f.appended) > 0 {
		f.entries = append(f.entries, f.appended[0])
		f.appended = f.appended[1:]
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeDriver) TestCursor(cursor string) (bool, error) {
	if f.pos < 0 || f.pos >= len(f.entries) {
		return false, nil
	}
	return f.entries[f.pos].Cursor == cursor, nil
}

func (f *fakeDriver) GetEntry() (*journal.Entry, error) {
	if f.pos < 0 || f.pos >= len(f.entries) {
		return nil, errors.New("no current entry")
	}
	e := f.entries[f.pos]
	return &e, nil
}

func (f *fakeDriver) Close() error { return nil }

func mkEntry(cursor string, fields map[string]string) journal.Entry {
	return journal.Entry{Cursor: cursor, Fields: fields}
}

func drainAll(t *testing.T, s *requestState) []string {
	t.Helper()
	var got []string
	buf := make([]byte, 4096)
	for {
		n, err := s.Read(buf)
		if n > 0 {
			got = append(got, string(buf[:n]))
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return got
}

func TestPumpForwardOrder(t *testing.T) {
	driver := &fakeDriver{pos: -1, entries: []journal.Entry{
		mkEntry("c1", map[string]string{"MESSAGE": "A"}),
		mkEntry("c2", map[string]string{"MESSAGE": "B"}),
		mkEntry("c3", map[string]string{"MESSAGE": "C"}),
	}}

	s := &requestState{kind: streamEntries, reader: driver, mode: journal.ModeJSON, ctx: context.Background()}
	got := drainAll(t, s)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(got), got)
	}
	for i, want := range []string{"A", "B", "C"} {
		if !containsAll(got[i], want) {
			t.Errorf("record %d = %q, want it to contain %q", i, got[i], want)
		}
	}
}

func TestPumpNEntriesCap(t *testing.T) {
	driver := &fakeDriver{pos: -1, entries: []journal.Entry{
		mkEntry("c1", nil), mkEntry("c2", nil), mkEntry("c3", nil),
	}}
	s := &requestState{
		kind: streamEntries, reader: driver, mode: journal.ModeShort,
		nEntries: 2, nEntriesSet: true, ctx: context.Background(),
	}
	got := drainAll(t, s)
	if len(got) != 2 {
		t.Fatalf("expected exactly min(n_entries, available)=2 records, got %d", len(got))
	}
}

func TestPumpNextSkipPartialAdvanceSucceeds(t *testing.T) {
	// A skip of 5 with only 3 entries left on the journal should still
	// land on (and emit) the last reachable entry, not end the stream.
	driver := &fakeDriver{pos: -1, entries: []journal.Entry{
		mkEntry("c1", nil), mkEntry("c2", nil), mkEntry("c3", nil),
	}}
	s := &requestState{
		kind: streamEntries, reader: driver, mode: journal.ModeShort,
		nSkip: 5, nEntries: 1, nEntriesSet: true, ctx: context.Background(),
	}
	got := drainAll(t, s)
	if len(got) != 1 {
		t.Fatalf("expected the partial skip to land on and emit one entry, got %d", len(got))
	}
}

func TestPumpDiscreteMatch(t *testing.T) {
	driver := &fakeDriver{pos: -1, entries: []journal.Entry{mkEntry("c1", nil)}}
	s := &requestState{
		kind: streamEntries, reader: driver, mode: journal.ModeShort,
		cursor: "c1", discrete: true, nEntries: 1, nEntriesSet: true, ctx: context.Background(),
	}
	got := drainAll(t, s)
	if len(got) != 1 {
		t.Fatalf("discrete mode with matching cursor should emit exactly one record, got %d", len(got))
	}
}

func TestPumpDiscreteNoMatch(t *testing.T) {
	driver := &fakeDriver{pos: -1, entries: []journal.Entry{mkEntry("c1", nil), mkEntry("c2", nil)}}
	// position the driver such that the first Next() lands on c2, which
	// will not match the requested cursor c1.
	driver.pos = 0
	s := &requestState{
		kind: streamEntries, reader: driver, mode: journal.ModeShort,
		cursor: "c1", discrete: true, nEntries: 1, nEntriesSet: true, ctx: context.Background(),
	}
	got := drainAll(t, s)
	if len(got) != 0 {
		t.Fatalf("discrete mode with non-matching cursor should emit zero records, got %d", len(got))
	}
}

func TestPumpFollowBlocksThenEmits(t *testing.T) {
	driver := &fakeDriver{
		pos:      -1,
		entries:  nil,
		appended: []journal.Entry{mkEntry("c1", map[string]string{"FOO": "bar"})},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &requestState{kind: streamEntries, reader: driver, mode: journal.ModeShort, follow: true, ctx: ctx}

	buf := make([]byte, 4096)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == 0 {
		t.Fatal("expected a record to be emitted once Wait delivers one")
	}
	if driver.waited == 0 {
		t.Fatal("expected follow mode to call Wait before the entry appeared")
	}
}

func TestPumpFieldsEnumeration(t *testing.T) {
	s := &requestState{
		kind: streamFields, mode: journal.ModeJSON,
		fieldName: "UNIT", fieldValues: []string{"a.service", "b.service"},
		ctx: context.Background(),
	}
	got := drainAll(t, s)
	if len(got) != 2 {
		t.Fatalf("expected 2 field values, got %d", len(got))
	}
}

func containsAll(haystack, needle string) bool {
	return len(needle) == 0 || (len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
