package common

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMoney renders a USD amount like $12,345.67. Negative amounts carry
// the sign ahead of the currency symbol.
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + groupThousands(strconv.FormatFloat(v, 'f', 2, 64))
}

// FormatSignedMoney is FormatMoney with an explicit + on non-negative amounts.
func FormatSignedMoney(v float64) string {
	if v >= 0 {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatPct renders a percentage with one decimal: 12.5%.
func FormatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatSignedPct renders a percentage with an explicit sign: +1.2% / -3.4%.
func FormatSignedPct(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

// FormatQty renders a token quantity with up to 8 decimals, trimming
// insignificant zeros.
func FormatQty(v float64) string {
	s := strconv.FormatFloat(v, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

func groupThousands(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) > 3 {
		var sb strings.Builder
		pre := len(intPart) % 3
		if pre > 0 {
			sb.WriteString(intPart[:pre])
		}
		for i := pre; i < len(intPart); i += 3 {
			if sb.Len() > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(intPart[i : i+3])
		}
		intPart = sb.String()
	}
	if hasFrac {
		return intPart + "." + frac
	}
	return intPart
}
