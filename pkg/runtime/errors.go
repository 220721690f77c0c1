package runtime

import "errors"

// ErrAlreadyMounted is returned by Loop.Mount when the loop already has
// a mounted root.
var ErrAlreadyMounted = errors.New("fervo: loop already mounted")

// ErrNotMounted is returned by Loop.Run and Loop.Tick before Mount.
var ErrNotMounted = errors.New("fervo: loop not mounted")

// ErrTaskCancelled is the error recorded by a task whose context was
// cancelled before the work body returned its own error.
var ErrTaskCancelled = errors.New("fervo: task cancelled")

// Hook misuse is a programmer error, not a runtime condition: the slot
// sequence of an instance must be identical on every render. Violations
// panic with an E001-coded message rather than being silently misapplied.
