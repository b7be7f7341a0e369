// Package webhook exposes the letter-generation HTTP surface: one endpoint
// per letter type, a health check, and the CRM delivery flow behind them.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/crm"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/enrollment"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/state"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/letter"
	"github.com/harmon-tuazon/PD-enrollment-letter-generator/render"
)

const (
	serviceName     = "enrollment-letter-generator"
	shutdownTimeout = 10 * time.Second
	defaultAccess   = "PRIVATE"
)

// Aggregator supplies a student's ranked enrollments.
type Aggregator interface {
	Aggregate(ctx context.Context, parentID string) ([]enrollment.Record, error)
}

// Renderer converts letter markup into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, markup string, opts render.PDFOptions, maxAttempts int) ([]byte, error)
}

// FileStore uploads letters and attaches audit notes in the record store.
type FileStore interface {
	UploadFile(ctx context.Context, data []byte, fileName, folderID, access string) (*crm.File, error)
	CreateNote(ctx context.Context, body string, timestamp time.Time, attachmentID, recordID string) (*crm.Note, error)
}

// Sessions is the render session lifecycle hook used at shutdown.
type Sessions interface {
	Teardown()
}

// DeliveryLog records produced letters.
type DeliveryLog interface {
	Append(delivery state.Delivery) error
}

// Archiver keeps a secondary copy of rendered PDFs.
type Archiver interface {
	Store(ctx context.Context, name string, data []byte) error
}

// ServerOptions configures a webhook server.
type ServerOptions struct {
	Aggregator Aggregator
	Renderer   Renderer
	Store      FileStore
	Sessions   Sessions
	// Deliveries and Archive are optional.
	Deliveries DeliveryLog
	Archive    Archiver
	// Catalog defaults to the embedded catalog when nil.
	Catalog  *enrollment.Catalog
	Timezone *time.Location
	// FolderID is the file-store folder letters are uploaded into.
	FolderID    string
	MaxAttempts int
	Logger      *log.Logger
}

// Server handles letter webhooks.
type Server struct {
	aggregator  Aggregator
	renderer    Renderer
	store       FileStore
	sessions    Sessions
	deliveries  DeliveryLog
	archive     Archiver
	catalog     *enrollment.Catalog
	timezone    *time.Location
	folderID    string
	maxAttempts int
	logger      *log.Logger
}

// NewServer creates a webhook server.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("file store is required")
	}
	catalog := opts.Catalog
	if catalog == nil {
		loaded, err := enrollment.DefaultCatalog()
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	timezone := opts.Timezone
	if timezone == nil {
		timezone = enrollment.DefaultTimezone()
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = render.DefaultMaxAttempts
	}
	return &Server{
		aggregator:  opts.Aggregator,
		renderer:    opts.Renderer,
		store:       opts.Store,
		sessions:    opts.Sessions,
		deliveries:  opts.Deliveries,
		archive:     opts.Archive,
		catalog:     catalog,
		timezone:    timezone,
		folderID:    opts.FolderID,
		maxAttempts: maxAttempts,
		logger:      opts.Logger,
	}, nil
}

// Handler returns the HTTP handler for letter webhooks.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/enrollment-letter", s.handleEnrollmentLetter)
	mux.HandleFunc("/webhooks/acceptance-letter", s.handleAcceptanceLetter)
	mux.HandleFunc("/health", s.handleHealth)
	return s.recoverHandler(corsHandler(mux))
}

// Serve runs the server on the given address, tearing the render session
// down on SIGINT/SIGTERM.
func (s *Server) Serve(addr string) error {
	server := &http.Server{
		Addr:     addr,
		Handler:  s.Handler(),
		ErrorLog: s.logger,
	}

	listenErrs := make(chan error, 1)
	go func() {
		listenErrs <- server.ListenAndServe()
	}()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	select {
	case err := <-listenErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logf("server stopped: %v", err)
			return err
		}
		return nil
	case <-interrupts:
		s.logf("interrupt received, shutting down")
		if s.sessions != nil {
			s.sessions.Teardown()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		shutdownErr := server.Shutdown(shutdownCtx)
		cancel()
		listenErr := <-listenErrs
		if errors.Is(listenErr, http.ErrServerClosed) {
			listenErr = nil
		}
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
		return errors.Join(shutdownErr, listenErr)
	}
}

func (s *Server) handleEnrollmentLetter(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	var payload enrollmentRequest
	if err := decodeJSON(r, &payload); err != nil {
		s.writeFailure(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if missing := payload.missingFields(); len(missing) > 0 {
		s.writeMissingFields(w, r, missing)
		return
	}

	ctx := r.Context()
	records, err := s.aggregator.Aggregate(ctx, payload.StudentID)
	if err != nil {
		s.writeFailure(w, r, statusForError(err), "could not aggregate enrollments", err)
		return
	}

	markup, err := letter.BuildEnrollment(letter.Enrollment{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Records:   records,
		IssuedAt:  time.Now().In(s.timezone),
	})
	if err != nil {
		s.writeFailure(w, r, http.StatusInternalServerError, "could not build letter", err)
		return
	}

	delivery := state.Delivery{
		LetterType:  state.LetterEnrollment,
		RecordID:    payload.RecordID,
		StudentID:   payload.StudentID,
		Recipient:   payload.FirstName + " " + payload.LastName,
		RecordCount: len(records),
	}
	noteBody := fmt.Sprintf("Enrollment letter generated for %s %s (%d enrollments)",
		payload.FirstName, payload.LastName, len(records))
	s.deliver(w, r, markup, "enrollment-letter", noteBody, payload.RecordID, delivery)
}

func (s *Server) handleAcceptanceLetter(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	var payload acceptanceRequest
	if err := decodeJSON(r, &payload); err != nil {
		s.writeFailure(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if missing := payload.missingFields(); len(missing) > 0 {
		s.writeMissingFields(w, r, missing)
		return
	}

	acceptance, err := letter.NewAcceptance(payload.FirstName, payload.LastName,
		payload.CourseID, payload.Location, payload.StartDate, payload.EndDate,
		s.catalog, s.timezone)
	if err != nil {
		s.writeFailure(w, r, statusForError(err), "could not build letter", err)
		return
	}
	markup, err := letter.BuildAcceptance(*acceptance)
	if err != nil {
		s.writeFailure(w, r, http.StatusInternalServerError, "could not build letter", err)
		return
	}

	delivery := state.Delivery{
		LetterType: state.LetterAcceptance,
		RecordID:   payload.RecordID,
		StudentID:  payload.StudentID,
		Recipient:  payload.FirstName + " " + payload.LastName,
	}
	noteBody := fmt.Sprintf("Acceptance letter generated for %s %s (%s)",
		payload.FirstName, payload.LastName, acceptance.CourseName)
	s.deliver(w, r, markup, "acceptance-letter", noteBody, payload.RecordID, delivery)
}

// deliver renders the markup, uploads the PDF, attaches the audit note, and
// writes the success envelope. The delivery log and archive are best-effort;
// the letter has already reached the record store when they run.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, markup, kind, noteBody, recordID string, delivery state.Delivery) {
	ctx := r.Context()

	pdf, err := s.renderer.Render(ctx, markup, render.PDFOptions{}, s.maxAttempts)
	if err != nil {
		s.writeFailure(w, r, statusForError(err), "could not render letter", err)
		return
	}

	fileName := fmt.Sprintf("%s-%s.pdf", kind, uuid.NewString())
	file, err := s.store.UploadFile(ctx, pdf, fileName, s.folderID, defaultAccess)
	if err != nil {
		s.writeFailure(w, r, http.StatusBadGateway, "could not store letter", err)
		return
	}
	note, err := s.store.CreateNote(ctx, noteBody, time.Now(), file.ID, recordID)
	if err != nil {
		s.writeFailure(w, r, http.StatusBadGateway, "could not attach note", err)
		return
	}

	delivery.ID = uuid.NewString()
	delivery.FileID = file.ID
	delivery.FileURL = file.URL
	delivery.NoteID = note.ID
	delivery.CreatedAt = time.Now().In(s.timezone)
	if s.deliveries != nil {
		if err := s.deliveries.Append(delivery); err != nil {
			s.logf("record delivery %s: %v", delivery.ID, err)
		}
	}
	if s.archive != nil {
		if err := s.archive.Store(ctx, fileName, pdf); err != nil {
			s.logf("archive %s: %v", fileName, err)
		}
	}

	writeJSON(w, http.StatusOK, successResponse{
		Message:   noteBody,
		NoteID:    note.ID,
		FileURL:   file.URL,
		Success:   true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		s.writeFailure(w, r, http.StatusMethodNotAllowed,
			"", fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) requirePost(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost:
		return true
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return false
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		s.writeFailure(w, r, http.StatusMethodNotAllowed,
			"", fmt.Errorf("method %s not allowed", r.Method))
		return false
	}
}

// statusForError maps domain failures to response classes: caller mistakes
// and data emptiness are 4xx, downstream failures are 5xx.
func statusForError(err error) int {
	var childErr *enrollment.ChildFetchError
	switch {
	case errors.Is(err, enrollment.ErrAssociationFetch),
		errors.Is(err, enrollment.ErrNoEnrollments),
		errors.Is(err, enrollment.ErrNoValidEnrollments):
		// No usable data to build a letter from, including an association
		// lookup that failed outright.
		return http.StatusNotFound
	case errors.Is(err, letter.ErrUnknownCourse),
		errors.Is(err, letter.ErrUnknownLocation),
		errors.Is(err, letter.ErrBadDate):
		return http.StatusBadRequest
	case errors.As(err, &childErr),
		errors.Is(err, render.ErrAttemptsExhausted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeMissingFields(w http.ResponseWriter, r *http.Request, missing []string) {
	s.writeFailure(w, r, http.StatusBadRequest, "",
		fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
}

func corsHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := &responseTracker{ResponseWriter: w}
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logf("panic handling request %s %s: %v\n%s", r.Method, r.URL.Path, recovered, debug.Stack())
				if writer.wroteHeader {
					return
				}
				writeJSON(writer, http.StatusInternalServerError, failureResponse{
					Error:     "internal server error",
					Success:   false,
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			}
		}()
		next.ServeHTTP(writer, r)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeFailure logs the underlying error and writes the failure envelope.
// The envelope carries err.Error() only; wrapped errors here never embed
// credentials or stack traces.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	s.logRequestError(r, status, err)
	writeJSON(w, status, failureResponse{
		Error:     err.Error(),
		Message:   message,
		Success:   false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) logRequestError(r *http.Request, status int, err error) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf("request %s %s failed (%d): %v", r.Method, r.URL.Path, status, err)
}

func (s *Server) logf(format string, args ...any) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}

type responseTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *responseTracker) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseTracker) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(data)
}
