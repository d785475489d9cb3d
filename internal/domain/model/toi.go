package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTOI converts an "MM:SS" duration to seconds. Anything malformed is 0:
// missing time on ice means none.
func ParseTOI(s string) int {
	mm, ss, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 {
		return 0
	}
	sec, err := strconv.Atoi(ss)
	if err != nil || sec < 0 || sec >= 60 {
		return 0
	}
	return m*60 + sec
}

// FormatTOI renders seconds as "MM:SS".
func FormatTOI(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
