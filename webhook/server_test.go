package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/crm"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/enrollment"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/state"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/render"
)

type fakeAggregator struct {
	records []enrollment.Record
	err     error
	calls   int
}

func (f *fakeAggregator) Aggregate(ctx context.Context, parentID string) ([]enrollment.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeRenderer struct {
	pdf   []byte
	err   error
	calls int
}

func (f *fakeRenderer) Render(ctx context.Context, markup string, opts render.PDFOptions, maxAttempts int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pdf, nil
}

type fakeStore struct {
	uploadErr   error
	noteErr     error
	uploads     int
	notes       int
	noteBody    string
	noteRecord  string
	uploadedPDF []byte
}

func (f *fakeStore) UploadFile(ctx context.Context, data []byte, fileName, folderID, access string) (*crm.File, error) {
	f.uploads++
	f.uploadedPDF = data
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &crm.File{ID: "file-1", URL: "https://files.example/file-1"}, nil
}

func (f *fakeStore) CreateNote(ctx context.Context, body string, timestamp time.Time, attachmentID, recordID string) (*crm.Note, error) {
	f.notes++
	f.noteBody = body
	f.noteRecord = recordID
	if f.noteErr != nil {
		return nil, f.noteErr
	}
	return &crm.Note{ID: "note-1"}, nil
}

type fakeDeliveries struct {
	appended []state.Delivery
	err      error
}

func (f *fakeDeliveries) Append(delivery state.Delivery) error {
	f.appended = append(f.appended, delivery)
	return f.err
}

type fakeArchive struct {
	stored map[string][]byte
	err    error
}

func (f *fakeArchive) Store(ctx context.Context, name string, data []byte) error {
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	f.stored[name] = data
	return f.err
}

type serverFixture struct {
	server     *Server
	aggregator *fakeAggregator
	renderer   *fakeRenderer
	store      *fakeStore
	deliveries *fakeDeliveries
	archive    *fakeArchive
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()
	fixture := &serverFixture{
		aggregator: &fakeAggregator{records: []enrollment.Record{
			{SourceID: "e1", CourseName: "Dental Hygiene Diploma", Duration: "January 8, 2024 to June 21, 2024"},
		}},
		renderer:   &fakeRenderer{pdf: []byte("%PDF-fake")},
		store:      &fakeStore{},
		deliveries: &fakeDeliveries{},
		archive:    &fakeArchive{},
	}
	server, err := NewServer(ServerOptions{
		Aggregator: fixture.aggregator,
		Renderer:   fixture.renderer,
		Store:      fixture.store,
		Deliveries: fixture.deliveries,
		Archive:    fixture.archive,
		Timezone:   time.UTC,
		FolderID:   "letters",
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	fixture.server = server
	return fixture
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func validEnrollmentPayload() map[string]string {
	return map[string]string{
		"firstname":  "Dana",
		"lastname":   "Reyes",
		"recordID":   "record-9",
		"student_id": "student-1",
	}
}

func validAcceptancePayload() map[string]string {
	payload := validEnrollmentPayload()
	payload["location"] = "NorthYork"
	payload["course_id"] = "DH-Diploma-2024"
	payload["enrollment_record_id"] = "e1"
	payload["course_start_date"] = "2024-01-08"
	payload["course_end_date"] = "2024-06-21"
	return payload
}

func TestEnrollmentLetter_Success(t *testing.T) {
	fixture := newFixture(t)
	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	if body["noteId"] != "note-1" || body["fileUrl"] != "https://files.example/file-1" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if body["timestamp"] == "" {
		t.Fatal("expected a timestamp")
	}
	if fixture.store.uploads != 1 || fixture.store.notes != 1 {
		t.Fatalf("expected one upload and one note, got %d/%d", fixture.store.uploads, fixture.store.notes)
	}
	if fixture.store.noteRecord != "record-9" {
		t.Fatalf("note attached to %q", fixture.store.noteRecord)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header on success")
	}
}

func TestEnrollmentLetter_RecordsDeliveryAndArchives(t *testing.T) {
	fixture := newFixture(t)
	postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())

	if len(fixture.deliveries.appended) != 1 {
		t.Fatalf("expected one delivery, got %d", len(fixture.deliveries.appended))
	}
	delivery := fixture.deliveries.appended[0]
	if delivery.LetterType != state.LetterEnrollment || delivery.NoteID != "note-1" || delivery.RecordCount != 1 {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
	if len(fixture.archive.stored) != 1 {
		t.Fatalf("expected one archived pdf, got %d", len(fixture.archive.stored))
	}
}

func TestEnrollmentLetter_MissingFieldsEnumerated(t *testing.T) {
	fixture := newFixture(t)
	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", map[string]string{
		"firstname": "Dana",
	})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	message, _ := body["error"].(string)
	for _, field := range []string{"lastname", "recordID", "student_id"} {
		if !strings.Contains(message, field) {
			t.Errorf("error %q missing field name %q", message, field)
		}
	}
	if strings.Contains(message, "firstname") {
		t.Errorf("error %q names a present field", message)
	}
	if fixture.aggregator.calls != 0 || fixture.renderer.calls != 0 || fixture.store.uploads != 0 {
		t.Fatal("validation failure must make no external calls")
	}
}

func TestEnrollmentLetter_NoEnrollmentsIs404(t *testing.T) {
	fixture := newFixture(t)
	fixture.aggregator.err = fmt.Errorf("%w: student-1", enrollment.ErrNoEnrollments)

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if message, _ := body["error"].(string); !strings.Contains(message, "student-1") {
		t.Fatalf("error %q does not name the parent id", message)
	}
	if fixture.renderer.calls != 0 {
		t.Fatal("aggregation failure must not render")
	}
}

func TestEnrollmentLetter_AssociationFetchFailureIs404(t *testing.T) {
	fixture := newFixture(t)
	fixture.aggregator.err = fmt.Errorf("%w for student-1: upstream 500", enrollment.ErrAssociationFetch)

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if message, _ := body["error"].(string); !strings.Contains(message, "student-1") {
		t.Fatalf("error %q does not name the parent id", message)
	}
	if fixture.renderer.calls != 0 {
		t.Fatal("aggregation failure must not render")
	}
}

func TestEnrollmentLetter_ChildFetchErrorIs502(t *testing.T) {
	fixture := newFixture(t)
	fixture.aggregator.err = &enrollment.ChildFetchError{ChildID: "broken", Err: errors.New("boom")}

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", recorder.Code)
	}
}

func TestEnrollmentLetter_RenderExhaustionIs502(t *testing.T) {
	fixture := newFixture(t)
	fixture.renderer.err = fmt.Errorf("%w: 3 attempts: boom", render.ErrAttemptsExhausted)

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", recorder.Code)
	}
	if fixture.store.uploads != 0 {
		t.Fatal("render failure must not upload")
	}
}

func TestEnrollmentLetter_UploadFailureIs502(t *testing.T) {
	fixture := newFixture(t)
	fixture.store.uploadErr = errors.New("quota exceeded")

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", recorder.Code)
	}
	if len(fixture.deliveries.appended) != 0 {
		t.Fatal("failed delivery must not be logged")
	}
}

func TestEnrollmentLetter_DeliveryLogFailureStillSucceeds(t *testing.T) {
	fixture := newFixture(t)
	fixture.deliveries.err = errors.New("disk full")
	fixture.archive.err = errors.New("bucket missing")

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/enrollment-letter", validEnrollmentPayload())
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 despite best-effort failures, got %d", recorder.Code)
	}
}

func TestAcceptanceLetter_Success(t *testing.T) {
	fixture := newFixture(t)
	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/acceptance-letter", validAcceptancePayload())

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if !strings.Contains(fixture.store.noteBody, "Dental Hygiene Diploma") {
		t.Fatalf("note body %q missing course name", fixture.store.noteBody)
	}
	// Acceptance letters never consult the aggregation pipeline.
	if fixture.aggregator.calls != 0 {
		t.Fatal("acceptance letter must not aggregate")
	}
}

func TestAcceptanceLetter_UnknownCourseIs400(t *testing.T) {
	fixture := newFixture(t)
	payload := validAcceptancePayload()
	payload["course_id"] = "Pottery-101"

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/acceptance-letter", payload)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if fixture.renderer.calls != 0 || fixture.store.uploads != 0 {
		t.Fatal("mapping failure must make no downstream calls")
	}
}

func TestAcceptanceLetter_UnknownLocationIs400(t *testing.T) {
	fixture := newFixture(t)
	payload := validAcceptancePayload()
	payload["location"] = "Moonbase"

	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/acceptance-letter", payload)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestAcceptanceLetter_MissingFieldsEnumerated(t *testing.T) {
	fixture := newFixture(t)
	recorder := postJSON(t, fixture.server.Handler(), "/webhooks/acceptance-letter", validEnrollmentPayload())

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	message, _ := body["error"].(string)
	for _, field := range []string{"location", "course_id", "enrollment_record_id", "course_start_date", "course_end_date"} {
		if !strings.Contains(message, field) {
			t.Errorf("error %q missing field name %q", message, field)
		}
	}
}

func TestHealth(t *testing.T) {
	fixture := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	fixture.server.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["status"] != "ok" || body["service"] != serviceName {
		t.Fatalf("unexpected health body %v", body)
	}
	if fixture.aggregator.calls != 0 || fixture.renderer.calls != 0 {
		t.Fatal("health check must have no side effects")
	}
}

func TestPreflight(t *testing.T) {
	fixture := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/webhooks/enrollment-letter", nil)
	recorder := httptest.NewRecorder()
	fixture.server.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS headers on preflight")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	fixture := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/webhooks/enrollment-letter", nil)
	recorder := httptest.NewRecorder()
	fixture.server.Handler().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("expected Allow header naming POST, got %q", allow)
	}
}

func TestRecoverHandler_PanicIs500Envelope(t *testing.T) {
	fixture := newFixture(t)
	handler := fixture.server.recoverHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/enrollment-letter", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error"] != "internal server error" || body["success"] != false {
		t.Fatalf("unexpected panic envelope %v", body)
	}
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	if _, err := NewServer(ServerOptions{}); err == nil {
		t.Fatal("expected missing aggregator to be rejected")
	}
}
