package enrollment

import (
	"strconv"
	"strings"
	"time"
)

// Property names requested for each enrollment record.
const (
	PropCourseID  = "course_id"
	PropCourseTag = "course_name"
	PropStartDate = "course_start_date"
	PropEndDate   = "course_end_date"
	PropLocation  = "location"
	PropCreatedAt = "hs_createdate"
)

// Properties fetched for every enrollment detail request.
var RecordProperties = []string{
	PropCourseID,
	PropCourseTag,
	PropStartDate,
	PropEndDate,
	PropLocation,
	PropCreatedAt,
}

// Record is one enrollment surfaced to a letter: the mapped display course
// name, a human-readable duration, and an optional facility address.
type Record struct {
	SourceID   string    `json:"source_id"`
	CourseName string    `json:"course_name"`
	Duration   string    `json:"duration"`
	Address    string    `json:"address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// longDateLayout renders dates the way they appear in the letter body.
const longDateLayout = "January 2, 2006"

type skipReason string

const (
	skipMissingFields skipReason = "missing start date, end date, or course code"
	skipBadDate       skipReason = "unparseable start or end date"
	skipUnknownCourse skipReason = "unknown course code"
)

// newRecord validates and normalizes one enrollment's raw properties.
// A nil record with a reason means the enrollment is skipped, not failed:
// course code and both dates are mandatory, the location is supplementary.
func newRecord(id string, props map[string]string, catalog *Catalog, loc *time.Location) (*Record, skipReason) {
	courseCode := strings.TrimSpace(props[PropCourseID])
	startRaw := strings.TrimSpace(props[PropStartDate])
	endRaw := strings.TrimSpace(props[PropEndDate])
	if courseCode == "" || startRaw == "" || endRaw == "" {
		return nil, skipMissingFields
	}

	start, startErr := ParseDate(startRaw, loc)
	end, endErr := ParseDate(endRaw, loc)
	if startErr != nil || endErr != nil {
		return nil, skipBadDate
	}

	courseName, ok := catalog.CourseName(courseCode)
	if !ok {
		return nil, skipUnknownCourse
	}

	record := &Record{
		SourceID:   id,
		CourseName: courseName,
		Duration:   FormatDuration(start, end),
	}
	if address, ok := catalog.LocationAddress(props[PropLocation]); ok {
		record.Address = address
	}
	if createdAt, err := ParseDate(props[PropCreatedAt], loc); err == nil {
		record.CreatedAt = createdAt
	}
	return record, ""
}

// FormatDuration renders a start/end pair as a long-date range.
func FormatDuration(start, end time.Time) string {
	return start.Format(longDateLayout) + " to " + end.Format(longDateLayout)
}

// ParseDate accepts the date shapes the record store emits: epoch
// milliseconds, plain dates, or RFC 3339 timestamps. The result is expressed
// in the given location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if millis, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(millis).In(loc), nil
	}
	if parsed, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.In(loc), nil
}

// DefaultTimezone is the fixed letter timezone. Falls back to UTC when the
// zone database is unavailable.
func DefaultTimezone() *time.Location {
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		return time.UTC
	}
	return loc
}
