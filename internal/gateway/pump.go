// Chunk Pump (spec.md §4.3): drives the journal cursor forward under the
// pagination/filter policy captured in requestState and serializes each
// record. In the C original this is a pull callback addressed by an
// absolute byte offset; here it is an io.Reader drained by pump() in
// handlers.go, which only calls Read again once every byte of the previous
// call has been written — see SPEC_FULL.md §5.1 for why that makes the offset
// bookkeeping unnecessary while keeping the same record-at-a-time
// algorithm.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dcos/journal-gatewayd/internal/journal"
)

// Read implements io.Reader, satisfying one HTTP runtime pull at a time.
func (s *requestState) Read(p []byte) (int, error) {
	if s.spill == nil || s.spill.Len() == 0 {
		var err error
		switch s.kind {
		case streamFields:
			err = s.emitNextField()
		default:
			err = s.emitNextEntry()
		}
		if err != nil {
			if errors.Is(err, io.EOF) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				// EOF and client-cancellation both end the stream; spec.md
				// §7 treats cancellation as "not an error", so neither is
				// logged as a failure.
				return 0, io.EOF
			}
			return 0, err
		}
	}
	return s.spill.Read(p)
}

// emitNextEntry implements spec.md §4.3's "Emit next (entries mode)". It
// loops internally across follow-mode wait/retry cycles, returning once a
// record has been placed in spill or the stream has genuinely ended.
func (s *requestState) emitNextEntry() error {
	for {
		if s.nEntriesSet && s.nEntries == 0 {
			return io.EOF
		}

		ok, err := s.advance()
		if err != nil {
			return fmt.Errorf("advancing journal: %w", err)
		}

		if !ok {
			if !s.follow {
				return io.EOF
			}
			if err := s.reader.Wait(s.ctx); err != nil {
				return err
			}
			continue
		}

		if s.discrete {
			matched, err := s.reader.TestCursor(s.cursor)
			if err != nil {
				return fmt.Errorf("testing cursor: %w", err)
			}
			if !matched {
				return io.EOF
			}
		}

		s.nSkip = 0
		if s.nEntriesSet {
			s.nEntries--
		}

		entry, err := s.reader.GetEntry()
		if err != nil {
			return fmt.Errorf("reading entry: %w", err)
		}

		rec, err := journal.FormatEntry(s.mode, entry)
		if err != nil {
			return fmt.Errorf("serializing entry: %w", err)
		}

		s.fillSpill(rec)
		return nil
	}
}

// advance moves the journal cursor per the current n_skip policy (spec.md
// §4.3 step 2): |n_skip|+1 records in the signed direction, or a single
// Next() when n_skip is zero.
func (s *requestState) advance() (bool, error) {
	switch {
	case s.nSkip < 0:
		return s.reader.PreviousSkip(uint64(-s.nSkip) + 1)
	case s.nSkip > 0:
		return s.reader.NextSkip(uint64(s.nSkip) + 1)
	default:
		return s.reader.Next()
	}
}

// emitNextField implements spec.md §4.3's "Emit next (fields mode)": the
// only operation is enumerating the next unique value of the field
// requested on /fields/<NAME>.
func (s *requestState) emitNextField() error {
	if s.nFieldsSet && s.nFields == 0 {
		return io.EOF
	}
	if s.fieldIdx >= len(s.fieldValues) {
		return io.EOF
	}

	value := s.fieldValues[s.fieldIdx]
	s.fieldIdx++
	if s.nFieldsSet {
		s.nFields--
	}

	rec, err := journal.FormatFieldValue(s.mode, s.fieldName, value)
	if err != nil {
		return fmt.Errorf("serializing field value: %w", err)
	}

	s.fillSpill(rec)
	return nil
}

// fillSpill rewinds (or lazily creates) the spill buffer and writes rec
// into it, updating the delta/size bookkeeping spec.md §3 describes.
func (s *requestState) fillSpill(rec []byte) {
	s.delta += s.size
	s.size = uint64(len(rec))

	if s.spill == nil {
		s.spill = new(bytes.Buffer)
	} else {
		s.spill.Reset()
	}
	s.spill.Write(rec)
}
