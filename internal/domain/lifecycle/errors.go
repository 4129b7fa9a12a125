package lifecycle

import "errors"

// ErrPassRunning indicates a maintenance pass was requested while another
// one is still in progress.
var ErrPassRunning = errors.New("maintenance pass already running")
