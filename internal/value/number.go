package value

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Number canonicalizes d: Int32 when d is integral, in range, and not -0;
// otherwise Double.
func Number(d float64) Value {
	v, _ := NumberIsInt(d)
	return v
}

// NumberIsInt is Number that also reports whether the result is Int32.
func NumberIsInt(d float64) (Value, bool) {
	if i, ok := DoubleIsInt32(d); ok {
		return Int32(i), true
	}
	return Double(d), false
}

// DoubleIsInt32 reports whether d is exactly representable as an int32.
// Negative zero is not.
func DoubleIsInt32(d float64) (int32, bool) {
	if d == 0 && math.Signbit(d) {
		return 0, false
	}
	if d < math.MinInt32 || d > math.MaxInt32 {
		return 0, false
	}
	i := int32(d)
	if float64(i) != d {
		return 0, false
	}
	return i, true
}

const two32 = 4294967296.0

// ToInt32 applies the modular ToInt32 conversion to a double.
func ToInt32(d float64) int32 {
	if i, ok := DoubleIsInt32(d); ok {
		return i
	}
	return int32(ToUint32(d))
}

// ToUint32 applies the modular ToUint32 conversion to a double.
func ToUint32(d float64) uint32 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(d), two32)
	if m < 0 {
		m += two32
	}
	return uint32(m)
}

// NumberToString formats d the way Number::toString does: shortest
// round-trip digits, fixed notation between 1e-7 and 1e21.
func NumberToString(d float64) string {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case d == 0:
		return "0"
	case math.IsInf(d, 1):
		return "Infinity"
	case math.IsInf(d, -1):
		return "-Infinity"
	case d < 0:
		return "-" + NumberToString(-d)
	}
	if i, ok := DoubleIsInt32(d); ok {
		return strconv.FormatInt(int64(i), 10)
	}

	// "d.ddddde±XX"
	sci := strconv.FormatFloat(d, 'e', -1, 64)
	mant, expStr, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expStr)
	k := len(digits)
	n := exp + 1

	var sb strings.Builder
	switch {
	case k <= n && n <= 21:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		sb.WriteString(digits[:n])
		sb.WriteByte('.')
		sb.WriteString(digits[n:])
	case -6 < n && n <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -n))
		sb.WriteString(digits)
	default:
		sb.WriteByte(digits[0])
		if k > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		sb.WriteByte('e')
		if n-1 >= 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(strconv.Itoa(n - 1))
	}
	return sb.String()
}

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

// StringToNumber converts string contents to a number. Anything that is not
// a complete numeric literal yields NaN.
func StringToNumber(s *String) float64 {
	text := strings.TrimFunc(s.String(), isSpace)
	if text == "" {
		return 0
	}
	if len(text) > 2 && text[0] == '0' {
		base := 0
		switch text[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			return parseRadixInteger(text[2:], base)
		}
	}

	body := text
	neg := false
	switch body[0] {
	case '+':
		body = body[1:]
	case '-':
		body = body[1:]
		neg = true
	}
	if body == "Infinity" {
		if neg {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	if !isDecimalLiteral(body) {
		return math.NaN()
	}
	d, err := strconv.ParseFloat(body, 64)
	if err != nil {
		// ParseFloat returns ±Inf with a range error for huge literals.
		if !math.IsInf(d, 0) && d != 0 {
			return math.NaN()
		}
	}
	if neg {
		return -d
	}
	return d
}

func parseRadixInteger(digits string, base int) float64 {
	if digits == "" {
		return math.NaN()
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || n.Sign() < 0 || strings.ContainsAny(digits, "_+-") {
		return math.NaN()
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

// isDecimalLiteral accepts digits [. digits] [e[+-]digits] with at least one
// mantissa digit.
func isDecimalLiteral(s string) bool {
	i := 0
	mantissa := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		mantissa++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			mantissa++
		}
	}
	if mantissa == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
