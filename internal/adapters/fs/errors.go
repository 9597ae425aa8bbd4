package fs

import (
	"errors"

	"go.trai.ch/zerr"
)

// fail tags err with sentinel and a metadata pair so that callers can match
// both the sentinel and the underlying cause.
func fail(sentinel, err error, key string, value any) error {
	return errors.Join(sentinel, zerr.With(zerr.Wrap(err, ""), key, value))
}
