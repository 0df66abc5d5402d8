package resolve

import "errors"

var (
	// ErrDispatchTimeout is returned when not all missing entity ids could be
	// dispatched within the spawn timeout and the call was configured to raise.
	ErrDispatchTimeout = errors.New("dispatch timed out")

	// ErrJoinTimeout is returned when dispatched work did not complete within
	// the join timeout and the call was configured to raise.
	ErrJoinTimeout = errors.New("join timed out")
)
