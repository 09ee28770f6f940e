package audit

import "errors"

// ErrInvalidEntry is returned when an entry lacks its action or entity type.
var ErrInvalidEntry = errors.New("audit: invalid entry")
