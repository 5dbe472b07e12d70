// Package memsize provides int constants for memory sizes.
package memsize

import "fmt"

// Bytes.
const (
	B  uint64 = 1
	KB        = B << 10
	MB        = KB << 10
	GB        = MB << 10
	TB        = GB << 10
)

// Bits.
const (
	bit  uint64 = 1
	Kbit        = bit << 10
	Mbit        = Kbit << 10
	Gbit        = Mbit << 10
)

// Format returns a human readable representation of n bytes.
func Format(n uint64) string {
	if n == 0 {
		return "0B"
	}
	switch {
	case n >= TB:
		return format(n, TB, "TB")
	case n >= GB:
		return format(n, GB, "GB")
	case n >= MB:
		return format(n, MB, "MB")
	case n >= KB:
		return format(n, KB, "KB")
	default:
		return format(n, B, "B")
	}
}

// BitFormat returns a human readable representation of n bits.
func BitFormat(n uint64) string {
	if n == 0 {
		return "0bit"
	}
	switch {
	case n >= Gbit:
		return format(n, Gbit, "Gbit")
	case n >= Mbit:
		return format(n, Mbit, "Mbit")
	case n >= Kbit:
		return format(n, Kbit, "Kbit")
	default:
		return format(n, bit, "bit")
	}
}

func format(n, unit uint64, suffix string) string {
	return fmt.Sprintf("%.2f%s", float64(n)/float64(unit), suffix)
}
