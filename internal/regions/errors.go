package regions

import "errors"

// ErrInvalidKind is returned when a kind value is not part of the closed taxonomy.
var ErrInvalidKind = errors.New("invalid region kind")
