//go:build !unix

package transport

// isEINTR never fires on platforms without POSIX signal semantics.
func isEINTR(err error) bool {
	return false
}
