package offchain

import "errors"

// ErrFail is the only error returned across the contract boundary.
//
// It means the host could not perform the primitive operation. Callers cannot
// tell bad input from a transient host problem and must treat it as terminal
// for that call. Use errors.Is to check for it.
var ErrFail = errors.New("offchain: operation failed")
