package schema

import (
	"strconv"
	"strings"
)

// ParseBool reads the flag spellings found in vendor catalogs (Y/N, T/F, 0/1,
// YES/NO, true/false). Anything unrecognized is false.
func ParseBool(s string) bool {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "Y", "YES", "T", "TRUE", "ON":
		return true
	case "", "N", "NO", "F", "FALSE", "OFF":
		return false
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n != 0
	}
	return false
}
