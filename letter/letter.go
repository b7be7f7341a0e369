// Package letter builds the HTML markup for enrollment and acceptance
// letters and the mapping from raw payload fields to letter content.
package letter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/enrollment"
)

// sitPracticeDuration overrides the computed date range for sit-practice
// courses, whose schedule is fixed regardless of the record dates.
const sitPracticeDuration = "12 Weeks"

// Enrollment is the data rendered into an enrollment letter: the student
// and every aggregated enrollment, newest first.
type Enrollment struct {
	FirstName string
	LastName  string
	Records   []enrollment.Record
	IssuedAt  time.Time
}

// Acceptance is the data rendered into an acceptance letter for a single
// course offer.
type Acceptance struct {
	FirstName  string
	LastName   string
	CourseName string
	Address    string
	Duration   string
	IssuedAt   time.Time
}

// BuildEnrollment renders the enrollment letter markup.
func BuildEnrollment(data Enrollment) (string, error) {
	return execute("enrollment", data)
}

// BuildAcceptance renders the acceptance letter markup.
func BuildAcceptance(data Acceptance) (string, error) {
	return execute("acceptance", data)
}

// NewAcceptance maps raw payload fields onto letter content. The course code
// must resolve in the catalog and the location must match exactly; both are
// caller mistakes, not transient failures.
func NewAcceptance(firstName, lastName, courseCode, location, startRaw, endRaw string, catalog *enrollment.Catalog, loc *time.Location) (*Acceptance, error) {
	courseName, ok := catalog.CourseName(courseCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCourse, courseCode)
	}
	address, ok := catalog.LocationAddress(location)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, location)
	}
	duration, err := DurationString(startRaw, endRaw, courseCode, loc)
	if err != nil {
		return nil, err
	}
	return &Acceptance{
		FirstName:  firstName,
		LastName:   lastName,
		CourseName: courseName,
		Address:    address,
		Duration:   duration,
		IssuedAt:   time.Now().In(loc),
	}, nil
}

// DurationString computes the letter's duration line from the raw start and
// end fields. Sit-practice courses carry a fixed duration.
func DurationString(startRaw, endRaw, courseCode string, loc *time.Location) (string, error) {
	if strings.Contains(strings.ToLower(courseCode), "sitpractice") {
		return sitPracticeDuration, nil
	}
	start, err := enrollment.ParseDate(startRaw, loc)
	if err != nil {
		return "", fmt.Errorf("%w: start date %q", ErrBadDate, startRaw)
	}
	end, err := enrollment.ParseDate(endRaw, loc)
	if err != nil {
		return "", fmt.Errorf("%w: end date %q", ErrBadDate, endRaw)
	}
	return enrollment.FormatDuration(start, end), nil
}

// MarkdownSummary renders the records as a markdown list for terminal
// preview.
func MarkdownSummary(firstName, lastName string, records []enrollment.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Enrollment letter for %s %s\n\n", firstName, lastName)
	for _, record := range records {
		fmt.Fprintf(&b, "- **%s** (%s)", record.CourseName, record.Duration)
		if record.Address != "" {
			fmt.Fprintf(&b, " at %s", record.Address)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s letter: %w", name, err)
	}
	return buf.String(), nil
}
