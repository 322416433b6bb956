package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lib/pq"
)

// ErrStorageUnavailable marks a failure of the persistent backing store
// itself (connection refused, timeout, ...). Callers should treat it as
// retryable on their own cadence; the store never retries internally.
var ErrStorageUnavailable = errors.New("backing store unavailable")

// StorageError wraps a driver-level error so that callers can both match it
// with errors.Is(err, ErrStorageUnavailable) and still unwrap the original
// cause. Only connection-class failures match the sentinel; scan and
// constraint errors carry the same wrapper but are not retryable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable && isUnavailable(e.Err)
}

// isUnavailable classifies failures a retry can plausibly fix: dead or
// dropped connections, network faults, and the postgres error classes for
// connection exceptions (08), insufficient resources (53), and operator
// intervention such as shutdown (57).
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
	}
	return false
}
