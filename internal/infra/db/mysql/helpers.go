package mysql

import (
	"strconv"
	"strings"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func itoa(n int) string {
	if n <= 0 {
		n = 3306
	}
	return strconv.Itoa(n)
}
