// Package frdate parses free-text French date expressions into absolute
// timestamps. Relative expressions resolve against an explicit "now" so the
// parser stays deterministic and testable.
package frdate

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"crm_assistant_backend/platform/textnorm"
)

// ErrAmbiguous is returned when an expression cannot be interpreted as a date.
// Callers surface it to the user instead of treating it as a failure of the
// surrounding command.
var ErrAmbiguous = errors.New("expression de date ambiguë")

const (
	defaultHour   = 9
	defaultMinute = 0
)

var (
	hourRe     = regexp.MustCompile(`(\d{1,2})[h:](\d{2})?`)
	inDaysRe   = regexp.MustCompile(`dans (\d+) jours?`)
	inWeeksRe  = regexp.MustCompile(`dans (\d+) semaines?`)
	monthDayRe = regexp.MustCompile(`(\d{1,2})(?:er)?\s+([a-z]+)\.?(?:\s+(\d{4}))?`)
	numericRe  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?$`)
)

var weekdays = map[string]time.Weekday{
	"dimanche": time.Sunday,
	"lundi":    time.Monday,
	"mardi":    time.Tuesday,
	"mercredi": time.Wednesday,
	"jeudi":    time.Thursday,
	"vendredi": time.Friday,
	"samedi":   time.Saturday,
}

// Month names, abbreviations included, accent-stripped.
var months = map[string]time.Month{
	"janvier":   time.January,
	"janv":      time.January,
	"jan":       time.January,
	"fevrier":   time.February,
	"fevr":      time.February,
	"fev":       time.February,
	"mars":      time.March,
	"mar":       time.March,
	"avril":     time.April,
	"avr":       time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"juil":      time.July,
	"aout":      time.August,
	"aou":       time.August,
	"septembre": time.September,
	"sept":      time.September,
	"sep":       time.September,
	"octobre":   time.October,
	"oct":       time.October,
	"novembre":  time.November,
	"nov":       time.November,
	"decembre":  time.December,
	"dec":       time.December,
}

// Parser interprets French date expressions in a fixed time zone.
type Parser struct {
	loc *time.Location
}

// NewParser creates a Parser resolving dates in the given location.
func NewParser(loc *time.Location) *Parser {
	return &Parser{loc: loc}
}

// Parse converts expr into an absolute timestamp relative to now.
// Expressions without an explicit time default to 09:00. Returns
// ErrAmbiguous when the expression cannot be interpreted.
func (p *Parser) Parse(expr string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return time.Time{}, ErrAmbiguous
	}

	now = now.In(p.loc)
	s := textnorm.StripAccents(strings.ToLower(raw))

	hour, minute := defaultHour, defaultMinute
	if m := hourRe.FindStringSubmatch(s); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil && h <= 23 {
			hour, minute = h, 0
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			}
			s = strings.TrimSpace(hourRe.ReplaceAllString(s, " "))
		}
	}

	if strings.HasPrefix(s, "apres-demain") {
		return p.onDay(now.AddDate(0, 0, 2), hour, minute), nil
	}
	if strings.HasPrefix(s, "demain") {
		return p.onDay(now.AddDate(0, 0, 1), hour, minute), nil
	}

	if m := inDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return p.onDay(now.AddDate(0, 0, n), hour, minute), nil
	}
	if m := inWeeksRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return p.onDay(now.AddDate(0, 0, 7*n), hour, minute), nil
	}

	if strings.Contains(s, "semaine prochaine") {
		return p.onDay(now.AddDate(0, 0, 7), hour, minute), nil
	}

	for name, wd := range weekdays {
		if strings.HasPrefix(s, name) {
			offset := int(wd) - int(now.Weekday())
			if offset <= 0 {
				offset += 7
			}
			return p.onDay(now.AddDate(0, 0, offset), hour, minute), nil
		}
	}

	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		if month, ok := lookupMonth(m[2]); ok {
			day, _ := strconv.Atoi(m[1])
			year := now.Year()
			yearGiven := m[3] != ""
			if yearGiven {
				year, _ = strconv.Atoi(m[3])
			}
			candidate := time.Date(year, month, day, hour, minute, 0, 0, p.loc)
			if !yearGiven && candidate.Before(now) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, nil
		}
	}

	if m := numericRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		monthNum, _ := strconv.Atoi(m[2])
		if monthNum >= 1 && monthNum <= 12 && day >= 1 && day <= 31 {
			year := now.Year()
			yearGiven := m[3] != ""
			if yearGiven {
				year, _ = strconv.Atoi(m[3])
				if year < 100 {
					year += 2000
				}
			}
			candidate := time.Date(year, time.Month(monthNum), day, hour, minute, 0, 0, p.loc)
			if !yearGiven && candidate.Before(now) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, nil
		}
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.In(p.loc), nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, raw, p.loc); err == nil {
			if layout == "2006-01-02" {
				return p.onDay(ts, hour, minute), nil
			}
			return ts, nil
		}
	}

	return time.Time{}, ErrAmbiguous
}

// onDay keeps the calendar day of t and sets the given wall clock time.
func (p *Parser) onDay(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, p.loc)
}

func lookupMonth(name string) (time.Month, bool) {
	if m, ok := months[name]; ok {
		return m, true
	}
	if len(name) > 4 {
		if m, ok := months[name[:4]]; ok {
			return m, true
		}
	}
	if len(name) > 3 {
		if m, ok := months[name[:3]]; ok {
			return m, true
		}
	}
	return 0, false
}
