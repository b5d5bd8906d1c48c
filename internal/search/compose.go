package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"backend-umaklink/internal/post"
)

const locationSeparator = " > "

// AggregateLocation joins the non-empty location levels, outermost first.
func AggregateLocation(levels []string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, locationSeparator)
}

// ComposeQuery ORs the free-text term with the classifier phrases.
func ComposeQuery(text, keywords string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{text, keywords} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " OR ")
}

// ParseClassifierOutput strips markdown fences, quotes and whitespace from a
// raw model answer.
func ParseClassifierOutput(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag on the opening fence.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	for len(s) >= 2 && isQuote(s[0]) && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func isQuote(b byte) bool {
	return b == '"' || b == '\'' || b == '`'
}

// ToISODate converts a "MM/DD/YYYY" date and "h:mm" 12-hour time to an
// RFC 3339 instant in campus time. An empty clock means midnight.
func ToISODate(date, clock, meridian string) (string, error) {
	t, err := parseCampusTime(date, clock, meridian)
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}

func parseCampusTime(date, clock, meridian string) (time.Time, error) {
	day, err := time.ParseInLocation("01/02/2006", strings.TrimSpace(date), post.CampusZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return day, nil
	}

	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 1 || hour > 12 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", clock)
	}

	switch strings.ToUpper(strings.TrimSpace(meridian)) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 12 {
			hour += 12
		}
	default:
		return time.Time{}, fmt.Errorf("invalid meridian %q", meridian)
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), nil
}
