// Package formats provides the format predicates used by metadata schemas.
//
// Every predicate is total over its input: malformed, non-numeric or
// out-of-range values yield false. Non-string values always pass, since
// type checking is the job of the schema's "type" keyword.
package formats

import (
	"maps"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format names are persisted in schema documents and must remain stable.
const (
	DOI              = "doi"
	URL              = "url"
	Year             = "year"
	YearMonth        = "yearmonth"
	Date             = "date"
	DateTime         = "datetime"
	YearRange        = "year-range"
	YearMonthRange   = "yearmonth-range"
	DateRange        = "date-range"
	DateTimeRange    = "datetime-range"
	GeolocationPoint = "geolocation-point"
	GeolocationBox   = "geolocation-box"
)

// Checker tests whether a value conforms to a format.
type Checker interface {
	IsFormat(input any) bool
}

// CheckerFunc adapts a string predicate into a Checker that passes non-string input.
type CheckerFunc func(s string) bool

// IsFormat implements Checker.
func (f CheckerFunc) IsFormat(input any) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}

	return f(s)
}

// Registry maps format names to checkers.
type Registry map[string]Checker

// Default returns a new registry holding every built-in format.
func Default() Registry {
	return Registry{
		DOI:              CheckerFunc(IsDOI),
		URL:              CheckerFunc(IsURL),
		Year:             CheckerFunc(IsYear),
		YearMonth:        CheckerFunc(IsYearMonth),
		Date:             CheckerFunc(IsDate),
		DateTime:         CheckerFunc(IsDateTime),
		YearRange:        CheckerFunc(IsYearRange),
		YearMonthRange:   CheckerFunc(IsYearMonthRange),
		DateRange:        CheckerFunc(IsDateRange),
		DateTimeRange:    CheckerFunc(IsDateTimeRange),
		GeolocationPoint: CheckerFunc(IsGeolocationPoint),
		GeolocationBox:   CheckerFunc(IsGeolocationBox),
	}
}

// With returns a copy of the registry with the given checker added or replaced.
func (r Registry) With(name string, checker Checker) Registry {
	out := maps.Clone(r)
	if out == nil {
		out = Registry{}
	}

	out[name] = checker

	return out
}

// Has reports whether the registry owns the named format.
func (r Registry) Has(name string) bool {
	_, ok := r[name]

	return ok
}

// Check evaluates the named format. Unknown formats pass.
func (r Registry) Check(name string, input any) bool {
	checker, ok := r[name]
	if !ok {
		return true
	}

	return checker.IsFormat(input)
}

var (
	doiPattern       = regexp.MustCompile(`^10\.\d+(\.\d+)*/.+$`)
	yearPattern      = regexp.MustCompile(`^\d{4}$`)
	yearMonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern      = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2})(?:\.\d+)?)?(?:Z|[+-](\d{2}):(\d{2}))$`)
)

// IsDOI matches 10.<digits>(.<digits>)*/<suffix>.
func IsDOI(s string) bool {
	return doiPattern.MatchString(s)
}

// IsURL requires both a scheme and an authority.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

// IsYear matches YYYY.
func IsYear(s string) bool {
	if !yearPattern.MatchString(s) {
		return false
	}

	year, _ := strconv.Atoi(s)

	return year >= 1
}

// IsYearMonth matches YYYY-MM.
func IsYearMonth(s string) bool {
	if !yearMonthPattern.MatchString(s) {
		return false
	}

	return IsYear(s[:4]) && validMonth(s[5:7])
}

// IsDate matches YYYY-MM-DD with a valid calendar day.
func IsDate(s string) bool {
	if !datePattern.MatchString(s) || !IsYear(s[:4]) {
		return false
	}

	_, err := time.Parse(time.DateOnly, s)

	return err == nil
}

// IsDateTime matches <date>T<time> where time is HH:MM[:SS[.fraction]](Z|±HH:MM).
func IsDateTime(s string) bool {
	datePart, timePart, found := strings.Cut(s, "T")
	if !found || !IsDate(datePart) {
		return false
	}

	match := timePattern.FindStringSubmatch(timePart)
	if match == nil {
		return false
	}

	return inRange(match[1], 23) &&
		inRange(match[2], 59) &&
		inRange(match[3], 59) &&
		inRange(match[5], 59)
}

// Temporal precisions from coarsest to finest. A range endpoint may be written
// at the range's own precision or any coarser one, so "2001/" is a date range.
var temporalPrecisions = []func(string) bool{IsYear, IsYearMonth, IsDate, IsDateTime}

// IsYearRange matches <year>/<year> with either side open.
func IsYearRange(s string) bool {
	return isRange(s, 0)
}

// IsYearMonthRange matches <yearmonth>/<yearmonth> with either side open.
func IsYearMonthRange(s string) bool {
	return isRange(s, 1)
}

// IsDateRange matches <date>/<date> with either side open.
func IsDateRange(s string) bool {
	return isRange(s, 2)
}

// IsDateTimeRange matches <datetime>/<datetime> with either side open.
func IsDateTimeRange(s string) bool {
	return isRange(s, 3)
}

// IsGeolocationPoint matches "<lat> <lon>".
func IsGeolocationPoint(s string) bool {
	coords, ok := parseCoordinates(s, 2)
	if !ok {
		return false
	}

	return validLatitude(coords[0]) && validLongitude(coords[1])
}

// IsGeolocationBox matches "<lat1> <lon1> <lat2> <lon2>" with lat1 <= lat2 and lon1 <= lon2.
func IsGeolocationBox(s string) bool {
	coords, ok := parseCoordinates(s, 4)
	if !ok {
		return false
	}

	lat1, lon1, lat2, lon2 := coords[0], coords[1], coords[2], coords[3]

	return validLatitude(lat1) && validLongitude(lon1) &&
		validLatitude(lat2) && validLongitude(lon2) &&
		lat1 <= lat2 && lon1 <= lon2
}

func isRange(s string, precision int) bool {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return false
	}

	start, end := parts[0], parts[1]
	if start == "" && end == "" {
		return false
	}

	return (start == "" || isTemporal(start, precision)) && (end == "" || isTemporal(end, precision))
}

func isTemporal(s string, precision int) bool {
	for _, check := range temporalPrecisions[:precision+1] {
		if check(s) {
			return true
		}
	}

	return false
}

func parseCoordinates(s string, n int) ([]float64, bool) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, false
	}

	coords := make([]float64, n)

	for i, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, false
		}

		coords[i] = value
	}

	return coords, true
}

// NaN fails both comparisons, so it is rejected here as well.
func validLatitude(v float64) bool {
	return v >= -90 && v <= 90
}

func validLongitude(v float64) bool {
	return v >= -180 && v <= 180
}

func validMonth(s string) bool {
	month, err := strconv.Atoi(s)

	return err == nil && month >= 1 && month <= 12
}

// inRange treats an absent optional component as valid.
func inRange(s string, limit int) bool {
	if s == "" {
		return true
	}

	value, err := strconv.Atoi(s)

	return err == nil && value >= 0 && value <= limit
}
