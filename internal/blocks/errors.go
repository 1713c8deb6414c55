package blocks

import "errors"

// ErrInvalidType is returned when a block type value is not recognized.
var ErrInvalidType = errors.New("invalid block type")
