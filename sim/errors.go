package sim

import "errors"

// Errors returned by the simulator for invalid topology operations.
var (
	ErrUnknownRouter   = errors.New("unknown router")
	ErrDuplicateRouter = errors.New("duplicate router")
	ErrSelfLink        = errors.New("self link")
)
