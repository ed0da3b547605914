package stores

import (
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/width"
)

var (
	fullDatePattern  = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	shortDatePattern = regexp.MustCompile(`(?:^|[^\d/])(\d{1,2})\s*/\s*(\d{1,2})(?:[^\d/]|$)`)
)

// ParseCardDate reads the first date in a card's date or period text, such as
// "2024年10月15日〜" or "10/15(火)〜10/21(月)". Short dates take now's year.
func ParseCardDate(text string, now time.Time) (time.Time, bool) {
	text = width.Narrow.String(text)

	if m := fullDatePattern.FindStringSubmatch(text); m != nil {
		return makeDate(m[1], m[2], m[3], now.Location())
	}
	if m := shortDatePattern.FindStringSubmatch(text); m != nil {
		return makeDate(strconv.Itoa(now.Year()), m[1], m[2], now.Location())
	}
	return time.Time{}, false
}

func makeDate(y, m, d string, loc *time.Location) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 2/30 into March; reject instead.
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
