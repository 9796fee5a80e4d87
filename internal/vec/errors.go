package vec

import "errors"

// Common errors.
var (
	ErrUnknownVariable   = errors.New("variable not found in vector")
	ErrDuplicateVariable = errors.New("variable declared twice")
	ErrNoFlatIndices     = errors.New("no vector indices exist for a non-flattenable variable")
	ErrNotSetup          = errors.New("vector used before setup")
	ErrRaggedSizeTable   = errors.New("ranks reported differing variable counts")
)
