//go:build unix

package transport

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isEINTR reports whether err is a transient EINTR from the underlying
// socket syscall, as opposed to a real transport failure.
func isEINTR(err error) bool {
	return errors.Is(err, unix.EINTR)
}
