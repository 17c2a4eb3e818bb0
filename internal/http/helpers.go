package http

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"smartfin/internal/core"
)

// formatRupees formats cents as Indian rupees with lakh/crore grouping,
// e.g. "₹1,23,456.78".
func formatRupees(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	s := groupIndian(whole) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-₹" + s
	}
	return "₹" + s
}

// groupIndian groups the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// sanitizeInput removes control characters (except tab, newline and
// carriage return) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// monthLabel renders a YYYY-MM key as "January 2024".
func monthLabel(month string) string {
	t, err := time.Parse(core.MonthLayout, month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

func displayDate(d core.Date) string {
	if d.IsZero() {
		return "N/A"
	}
	return d.Format("02 Jan 2006")
}

var templateFuncs = template.FuncMap{
	"rupees": func(m core.Money) string { return formatRupees(m.Cents) },
	"pct1":   func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
	"pct0":   func(f float64) string { return strconv.FormatFloat(f, 'f', 0, 64) },
	"width":  func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
	"date":   displayDate,
	"month":  monthLabel,
	"lower":  strings.ToLower,
}
