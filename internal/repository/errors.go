package repository

import "errors"

// ErrNotChanged is returned by compare-and-set updates when the row no longer
// matches the expected state.
var ErrNotChanged = errors.New("record was not changed")
