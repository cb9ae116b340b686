package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/internal/model"
)

// ValidationError is an input error reported before any network call.
// Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrNoFile = &ValidationError{Message: "Please select a PDF file first!"}
	ErrNotPDF = &ValidationError{Message: "Only PDF files are allowed"}
)

// UploadAPI defines the backend calls of the upload phase
type UploadAPI interface {
	GenerateUploadURL(ctx context.Context) (*model.UploadDescriptor, error)
	UploadFile(ctx context.Context, uploadURL string, data []byte) error
}

// UploadService runs the upload phase of a cycle and hands off to the poller
type UploadService struct {
	api       UploadAPI
	presenter StatusPresenter
	poller    *Poller
	downloads *DownloadService
	notifier  Notifier
	logger    zerolog.Logger

	// mu serializes cycles; only one upload runs at a time.
	mu      sync.Mutex
	current *Session
}

// NewUploadService creates the upload orchestrator
func NewUploadService(api UploadAPI, presenter StatusPresenter, poller *Poller, downloads *DownloadService, notifier Notifier, logger zerolog.Logger) *UploadService {
	return &UploadService{
		api:       api,
		presenter: presenter,
		poller:    poller,
		downloads: downloads,
		notifier:  notifier,
		logger:    logger,
	}
}

// ValidateFile checks the upload preconditions
func ValidateFile(file *model.File) error {
	if file == nil {
		return ErrNoFile
	}
	if file.ContentType != model.ContentTypePDF {
		return ErrNotPDF
	}
	return nil
}

// Upload starts a new cycle for file. On success the returned session is
// being polled; ctx bounds both the upload and the poll cycle.
func (s *UploadService) Upload(ctx context.Context, file *model.File) (*Session, error) {
	if err := ValidateFile(file); err != nil {
		s.notifier.Notify(err.Error())
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.poller.Stop()
	s.downloads.Reset()

	sess := newSession(file.Name)
	s.current = sess
	log := s.logger.With().Str("session", sess.ID).Str("filename", file.Name).Logger()

	s.presenter.StartCycle()

	descriptor, err := s.api.GenerateUploadURL(ctx)
	if err != nil {
		return nil, s.fail(sess, log, fmt.Errorf("failed to get upload URL: %w", err))
	}

	if err := s.api.UploadFile(ctx, descriptor.URL, file.Data); err != nil {
		return nil, s.fail(sess, log, fmt.Errorf("failed to upload file: %w", err))
	}

	sess.RequestID = descriptor.RequestID
	log.Info().Str("request_id", sess.RequestID).Int64("bytes", file.Size()).Msg("file uploaded")

	s.presenter.SetStatus(model.JobStatusProcessing)
	s.poller.Start(ctx, sess)

	return sess, nil
}

// Current returns the session of the latest cycle, if any
func (s *UploadService) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Shutdown stops any active poll cycle
func (s *UploadService) Shutdown() {
	s.poller.Stop()
}

func (s *UploadService) fail(sess *Session, log zerolog.Logger, err error) error {
	log.Error().Err(err).Msg("upload failed")
	s.notifier.Notify("Error: " + err.Error())
	s.presenter.SetStatus(model.JobStatusFailed)
	sess.finish(Outcome{Status: model.JobStatusFailed, Err: err})
	return err
}
