package writer

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/cutlog/internal/constants"
)

var prefixPattern = regexp.MustCompile(`^\[([^\[\]-]+?)-\]`)

// NameFormat is a rotated file name template such as "[application-]YYYYMMDD[.log]".
// Bracketed text is literal; outside brackets the date tokens YYYY YY MM M DD D HH H
// mm m ss s are replaced. "{pid}" is replaced with the process id once, at parse time.
type NameFormat struct {
	layout string
	prefix string
}

// ParseNameFormat substitutes {pid} and extracts the leading "[<prefix>-]" group.
func ParseNameFormat(layout string) (NameFormat, error) {
	layout = strings.ReplaceAll(layout, "{pid}", strconv.Itoa(os.Getpid()))

	m := prefixPattern.FindStringSubmatch(layout)
	if m == nil {
		return NameFormat{}, ewrap.New("name format must start with a bracketed prefix such as [application-]").
			WithMetadata("name_format", layout)
	}

	return NameFormat{layout: layout, prefix: m[1]}, nil
}

// Prefix is the literal file name prefix.
func (f NameFormat) Prefix() string {
	return f.prefix
}

// LiveName is the undated name of the file currently written to.
func (f NameFormat) LiveName() string {
	return f.prefix + constants.LiveFileExtension
}

// Format renders the template for t.
func (f NameFormat) Format(t time.Time) string {
	layout := f.layout

	var sb strings.Builder

	sb.Grow(len(layout))

	for i := 0; i < len(layout); {
		if layout[i] == '[' {
			end := strings.IndexByte(layout[i+1:], ']')
			if end < 0 {
				sb.WriteString(layout[i+1:])

				break
			}

			sb.WriteString(layout[i+1 : i+1+end])
			i += end + 2

			continue
		}

		n, value := dateToken(layout[i:], t)
		if n > 0 {
			sb.WriteString(value)
			i += n

			continue
		}

		sb.WriteByte(layout[i])
		i++
	}

	return sb.String()
}

// dateToken matches the longest date token at the start of s.
func dateToken(s string, t time.Time) (int, string) {
	switch {
	case strings.HasPrefix(s, "YYYY"):
		return 4, pad(t.Year(), 4)
	case strings.HasPrefix(s, "YY"):
		return 2, pad(t.Year()%100, 2)
	case strings.HasPrefix(s, "MM"):
		return 2, pad(int(t.Month()), 2)
	case strings.HasPrefix(s, "M"):
		return 1, strconv.Itoa(int(t.Month()))
	case strings.HasPrefix(s, "DD"):
		return 2, pad(t.Day(), 2)
	case strings.HasPrefix(s, "D"):
		return 1, strconv.Itoa(t.Day())
	case strings.HasPrefix(s, "HH"):
		return 2, pad(t.Hour(), 2)
	case strings.HasPrefix(s, "H"):
		return 1, strconv.Itoa(t.Hour())
	case strings.HasPrefix(s, "mm"):
		return 2, pad(t.Minute(), 2)
	case strings.HasPrefix(s, "m"):
		return 1, strconv.Itoa(t.Minute())
	case strings.HasPrefix(s, "ss"):
		return 2, pad(t.Second(), 2)
	case strings.HasPrefix(s, "s"):
		return 1, strconv.Itoa(t.Second())
	default:
		return 0, ""
	}
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}

	return s
}

// firstDelay aligns the first rotation tick: now+period is rounded down to the start of
// its minute, hour or day depending on the period. Periods of one minute or less are
// returned unchanged.
func firstDelay(now time.Time, period time.Duration) time.Duration {
	if period <= constants.OneMinute {
		return period
	}

	next := now.Add(period)
	y, mo, d := next.Date()
	loc := next.Location()

	switch {
	case period < constants.OneHour:
		next = time.Date(y, mo, d, next.Hour(), next.Minute(), 0, 0, loc)
	case period < constants.OneDay:
		next = time.Date(y, mo, d, next.Hour(), 0, 0, 0, loc)
	default:
		next = time.Date(y, mo, d, 0, 0, 0, 0, loc)
	}

	return next.Sub(now)
}
