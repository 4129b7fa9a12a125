package hirlog

import "errors"

// ErrDuplicateRecord indicates a second record for the same cluster/window;
// the log is append-once per pair.
var ErrDuplicateRecord = errors.New("hir record already exists for window")
