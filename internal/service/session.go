package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdftranslate/client/internal/model"
)

// StatusPresenter is the part of the progress UI driven by the services
type StatusPresenter interface {
	StartCycle()
	SetStatus(status model.JobStatus)
	ShowDownload(link model.DownloadLink)
	HideDownload()
}

// Notifier presents blocking, user-facing notices
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Outcome is how an upload/poll cycle ended
type Outcome struct {
	Status     model.JobStatus
	Artifact   *model.Artifact
	Superseded bool
	Err        error
}

// Session is the context of one upload/poll cycle. It replaces any
// process-wide state: the original filename and request ID live here.
type Session struct {
	ID               string
	OriginalFilename string
	RequestID        string
	StartedAt        time.Time

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newSession(filename string) *Session {
	return &Session{
		ID:               uuid.New().String(),
		OriginalFilename: filename,
		StartedAt:        time.Now(),
		done:             make(chan struct{}),
	}
}

// finish records the outcome. Only the first call has any effect.
func (s *Session) finish(o Outcome) {
	s.once.Do(func() {
		s.outcome = o
		close(s.done)
	})
}

// Done is closed when the cycle has ended
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the outcome once the cycle has ended
func (s *Session) Outcome() (Outcome, bool) {
	select {
	case <-s.done:
		return s.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the cycle ends or ctx is done
func (s *Session) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
