package store

import (
	"fmt"
	"strconv"
	"time"
)

// formatDate converts CCYYMMDD to CCYY-MM-DD.
func formatDate(s string) (string, error) {
	if len(s) != 8 || !digits(s) {
		return "", fmt.Errorf("date %q is not CCYYMMDD", s)
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return "", fmt.Errorf("date %q: %w", s, err)
	}
	return t.Format(time.DateOnly), nil
}

// formatTime converts HHMM, HHMMSS, HHMMSSD or HHMMSSDD to HH:MM:SS with
// optional decimal seconds.
func formatTime(s string) (string, error) {
	if len(s) < 4 || len(s) > 8 || len(s) == 5 || !digits(s) {
		return "", fmt.Errorf("time %q is not HHMM[SS[DD]]", s)
	}
	hh, mm, ss := s[0:2], s[2:4], "00"
	if len(s) >= 6 {
		ss = s[4:6]
	}
	if n, _ := strconv.Atoi(hh); n > 23 {
		return "", fmt.Errorf("time %q: hour out of range", s)
	}
	if n, _ := strconv.Atoi(mm); n > 59 {
		return "", fmt.Errorf("time %q: minute out of range", s)
	}
	if n, _ := strconv.Atoi(ss); n > 59 {
		return "", fmt.Errorf("time %q: second out of range", s)
	}
	out := hh + ":" + mm + ":" + ss
	if len(s) > 6 {
		out += "." + s[6:]
	}
	return out, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
