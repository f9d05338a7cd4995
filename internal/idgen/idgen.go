package idgen

import "github.com/google/uuid"

// NewFunc produces identifiers; a package variable so tests can install a
// deterministic generator.
var NewFunc = func() string { return uuid.NewString() }

// New returns a globally unique identifier.
func New() string { return NewFunc() }
