package proc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSeek turns a user position into an absolute offset. It accepts plain
// seconds, MM:SS and HH:MM:SS, or a signed +N/-N relative to current. Relative
// targets clamp at zero.
func ParseSeek(raw string, current time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrSeekSyntax
	}

	sign := 0
	switch s[0] {
	case '+':
		sign = 1
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}

	d, err := parseClock(s)
	if err != nil {
		return 0, err
	}
	if sign == 0 {
		return d, nil
	}
	return max(current+time.Duration(sign)*d, 0), nil
}

func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, ErrSeekSyntax
	}
	var total int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, ErrSeekSyntax
		}
		if i > 0 && n >= 60 {
			return 0, ErrSeekSyntax
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// FormatDuration renders m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
