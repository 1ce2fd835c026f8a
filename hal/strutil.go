package hal

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	negative := n < 0
	u := uint64(n)
	if negative {
		u = uint64(-n)
	}
	s := formatUint(u, 10, 0)
	if negative {
		return "-" + s
	}
	return s
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	return formatUint(uint64(n), 10, 0)
}

// Itoa is the exported form of itoa for driver packages that must not pull
// in fmt on the firmware path.
func Itoa(n int) string { return itoa(n) }

// Utoa is the exported form of utoa.
func Utoa(n uint32) string { return utoa(n) }

// Hex formats n as 0x-prefixed hexadecimal, zero-padded to width digits.
func Hex(n uint32, width int) string {
	return "0x" + formatUint(uint64(n), 16, width)
}

const digitChars = "0123456789abcdef"

func formatUint(n uint64, base uint64, width int) string {
	var buf [20]byte
	pos := len(buf)
	for n > 0 || pos == len(buf) {
		pos--
		buf[pos] = digitChars[n%base]
		n /= base
	}
	for len(buf)-pos < width && pos > 0 {
		pos--
		buf[pos] = '0'
	}
	return string(buf[pos:])
}
