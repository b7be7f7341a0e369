// Package state manages the shared letter delivery log.
//
// The log file (~/.local/state/letters/deliveries.json) records every letter
// the service produced. All access is serialized through file locking to
// allow safe concurrent access from multiple processes.
package state

import "time"

// State represents the persisted delivery log.
type State struct {
	Deliveries []Delivery `json:"deliveries"`
}

// LetterType identifies which letter a delivery produced.
type LetterType string

const (
	// LetterEnrollment is a confirmation-of-enrollment letter.
	LetterEnrollment LetterType = "enrollment"
	// LetterAcceptance is a program acceptance letter.
	LetterAcceptance LetterType = "acceptance"
)

// ValidLetterTypes returns all valid letter type values.
func ValidLetterTypes() []LetterType {
	return []LetterType{LetterEnrollment, LetterAcceptance}
}

// IsValid returns true if the type is a known value.
func (t LetterType) IsValid() bool {
	for _, valid := range ValidLetterTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Delivery records one produced letter and where it landed.
type Delivery struct {
	ID          string     `json:"id"`
	LetterType  LetterType `json:"letter_type"`
	RecordID    string     `json:"record_id"`
	StudentID   string     `json:"student_id,omitempty"`
	Recipient   string     `json:"recipient"`
	FileID      string     `json:"file_id"`
	FileURL     string     `json:"file_url"`
	NoteID      string     `json:"note_id"`
	RecordCount int        `json:"record_count,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
