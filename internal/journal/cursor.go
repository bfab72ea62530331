package journal

import "regexp"

// cursorPattern matches the systemd journal cursor encoding:
// s=<seqnum ID, 32 hex>;i=<seqnum, hex>;b=<boot ID, 32 hex>;m=<monotonic, hex>;t=<realtime, hex>;x=<hash, hex>
// in exactly this field order. The gateway treats cursors as opaque tokens
// at the HTTP layer (spec.md §3); this check exists purely to turn an
// obviously-malformed cursor into a 400 before handing it to sd_journal_seek_cursor,
// rather than relying on the journal's own error path.
var cursorPattern = regexp.MustCompile(
	`^s=[0-9a-f]{32};i=[0-9a-f]+;b=[0-9a-f]{32};m=[0-9a-f]+;t=[0-9a-f]+;x=[0-9a-f]+$`,
)

// validateCursor reports whether cursor has the shape of a systemd journal
// cursor. It does not verify the cursor resolves to an existing entry.
func validateCursor(cursor string) error {
	if cursorPattern.MatchString(cursor) {
		return nil
	}
	return errCursorShape
}

var errCursorShape = cursorShapeError{}

type cursorShapeError struct{}

func (cursorShapeError) Error() string { return "cursor does not match the expected journal format" }
