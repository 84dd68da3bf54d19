package emissions

import "errors"

// ErrUnknownKey indicates a (category, key) pair that is not in the table.
// This is treated as a configuration or data bug rather than a user error.
var ErrUnknownKey = errors.New("unknown emission factor key")

// ErrInvalidFactorsFile indicates a factors override file that cannot be used.
var ErrInvalidFactorsFile = errors.New("invalid emission factors file")
