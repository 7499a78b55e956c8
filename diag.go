package netsio

import "strings"

// hexDump renders buf as space-separated uppercase hex, for trace logging.
// Mirrors the original bridge's buf_to_hex helper.
func hexDump(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(buf) * 3)
	for i, b := range buf {
		if i > 0 {
			sb.WriteByte(' ')
		}
		const hexDigits = "0123456789ABCDEF"
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0F])
	}
	return sb.String()
}
