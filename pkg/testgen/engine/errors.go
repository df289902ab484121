package engine

import "errors"

// ErrInvalidSelection is returned when a selection index falls outside the
// current case list. The operation rejects before touching state or the
// model, so callers keep their previous snapshot as-is.
var ErrInvalidSelection = errors.New("invalid selection index")
