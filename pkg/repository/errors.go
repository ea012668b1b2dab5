package repository

import "errors"

// ErrNotFound is returned by Get/Update/Delete methods when the id does
// not exist. The build service returns it to its own caller unchanged.
var ErrNotFound = errors.New("repository: not found")
