package packet

import "errors"

// ErrMalformed marks a packet that failed to decode: structurally invalid
// bytes, a non-string kind tag, or a payload that doesn't match the
// registered kind's schema.
var ErrMalformed = errors.New("packet: malformed")

// ErrUnknown marks a packet whose kind tag has no registered constructor.
var ErrUnknown = errors.New("packet: unknown kind")
