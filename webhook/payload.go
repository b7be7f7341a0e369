package webhook

import "strings"

type enrollmentRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	RecordID  string `json:"recordID"`
	StudentID string `json:"student_id"`
}

// missingFields names every absent required field, in payload order.
func (p enrollmentRequest) missingFields() []string {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"firstname", p.FirstName},
		{"lastname", p.LastName},
		{"recordID", p.RecordID},
		{"student_id", p.StudentID},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

type acceptanceRequest struct {
	FirstName          string `json:"firstname"`
	LastName           string `json:"lastname"`
	RecordID           string `json:"recordID"`
	StudentID          string `json:"student_id"`
	Location           string `json:"location"`
	CourseID           string `json:"course_id"`
	EnrollmentRecordID string `json:"enrollment_record_id"`
	StartDate          string `json:"course_start_date"`
	EndDate            string `json:"course_end_date"`
}

func (p acceptanceRequest) missingFields() []string {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"firstname", p.FirstName},
		{"lastname", p.LastName},
		{"recordID", p.RecordID},
		{"student_id", p.StudentID},
		{"location", p.Location},
		{"course_id", p.CourseID},
		{"enrollment_record_id", p.EnrollmentRecordID},
		{"course_start_date", p.StartDate},
		{"course_end_date", p.EndDate},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

type successResponse struct {
	Message   string `json:"message"`
	NoteID    string `json:"noteId"`
	FileURL   string `json:"fileUrl"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

type failureResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}
