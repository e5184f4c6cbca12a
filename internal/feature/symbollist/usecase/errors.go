package usecase

import "errors"

// ErrSymbolNotFound is returned when selecting a symbol that is not in the directory.
var ErrSymbolNotFound = errors.New("symbol not found")
