package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/internal/client"
	"github.com/pdftranslate/client/internal/model"
)

// Exporter makes an artifact reachable outside the process and returns the
// location the download link should point at.
type Exporter interface {
	Export(ctx context.Context, sessionID string, artifact *model.Artifact) (string, error)
}

// DownloadService turns translated text into a downloadable artifact
type DownloadService struct {
	presenter   StatusPresenter
	exporters   []Exporter
	defaultHref string
	logger      zerolog.Logger

	mu      sync.RWMutex
	current *model.Artifact
}

// PreparedDownload is an artifact and its link, built but not yet shown
type PreparedDownload struct {
	Artifact *model.Artifact
	Link     model.DownloadLink
}

// NewDownloadService creates a materializer. defaultHref is used when no
// exporter produces a location.
func NewDownloadService(presenter StatusPresenter, defaultHref string, logger zerolog.Logger, exporters ...Exporter) *DownloadService {
	return &DownloadService{
		presenter:   presenter,
		exporters:   exporters,
		defaultHref: defaultHref,
		logger:      logger,
	}
}

// DownloadFilename swaps the first ".pdf" in name for ".txt"
func DownloadFilename(name string) string {
	return strings.Replace(name, model.ExtensionPDF, model.ExtensionText, 1)
}

// Materialize builds the artifact and shows its download link
func (s *DownloadService) Materialize(ctx context.Context, sessionID, text, originalFilename string) *model.Artifact {
	prepared := s.Prepare(ctx, sessionID, text, originalFilename)
	s.Publish(prepared)
	return prepared.Artifact
}

// Prepare builds the artifact and runs the exporters. Exporter failures are
// logged and fall back to the next exporter or the default link.
func (s *DownloadService) Prepare(ctx context.Context, sessionID, text, originalFilename string) *PreparedDownload {
	filename := DownloadFilename(originalFilename)
	artifact := &model.Artifact{
		Filename:    filename,
		ContentType: model.ContentTypeText,
		Content:     []byte(text),
	}

	href := ""
	for _, exp := range s.exporters {
		location, err := exp.Export(ctx, sessionID, artifact)
		if err != nil {
			s.logger.Warn().Err(err).Str("session", sessionID).Str("filename", filename).Msg("artifact export failed")
			continue
		}
		if href == "" {
			href = location
		}
	}
	if href == "" {
		href = s.defaultHref
	}

	return &PreparedDownload{
		Artifact: artifact,
		Link: model.DownloadLink{
			Filename: filename,
			Href:     href,
			Label:    "Download " + filename,
		},
	}
}

// Publish makes a prepared artifact current and visible
func (s *DownloadService) Publish(p *PreparedDownload) {
	s.mu.Lock()
	s.current = p.Artifact
	s.mu.Unlock()

	s.presenter.ShowDownload(p.Link)
}

// Current returns the artifact of the latest completed cycle, if any
func (s *DownloadService) Current() (*model.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Reset drops the current artifact and hides its link
func (s *DownloadService) Reset() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.presenter.HideDownload()
}

// DirExporter writes artifacts into a local directory. The file is replaced
// atomically, an interrupted write never leaves a partial translation.
type DirExporter struct {
	Dir string
}

func (e *DirExporter) Export(_ context.Context, _ string, artifact *model.Artifact) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(e.Dir, filepath.Base(artifact.Filename))
	if err := renameio.WriteFile(path, artifact.Content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// StorageExporter mirrors artifacts to object storage and links a presigned URL
type StorageExporter struct {
	storage client.StorageClient
	expiry  time.Duration
}

func NewStorageExporter(storage client.StorageClient, expiry time.Duration) *StorageExporter {
	return &StorageExporter{storage: storage, expiry: expiry}
}

func (e *StorageExporter) Export(ctx context.Context, sessionID string, artifact *model.Artifact) (string, error) {
	key := fmt.Sprintf("translations/%s/%s", sessionID, filepath.Base(artifact.Filename))

	if err := e.storage.Upload(ctx, key, artifact.Content, artifact.ContentType, artifact.Filename); err != nil {
		return "", err
	}
	return e.storage.GetSignedURL(ctx, key, e.expiry)
}
