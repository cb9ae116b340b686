package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/internal/model"
)

const (
	noticeTranslationFailed  = "Translation failed. Please try again."
	noticeTranslationTimeout = "Translation timed out. Please try again."
)

// ErrPollTimeout ends a cycle that outlived the configured max wait
var ErrPollTimeout = errors.New("translation did not finish in time")

// StatusFetcher retrieves the status of a translation job
type StatusFetcher interface {
	GetStatus(ctx context.Context, requestID string) (*model.StatusResponse, error)
}

// Poller queries job status at a fixed interval until a terminal state.
// At most one cycle is active; starting or stopping bumps a generation
// counter so results from a superseded cycle never reach the presenter.
type Poller struct {
	fetcher   StatusFetcher
	presenter StatusPresenter
	downloads *DownloadService
	notifier  Notifier
	interval  time.Duration
	maxWait   time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	stop    chan struct{}
	session *Session
}

// NewPoller creates a poller. maxWait of zero polls until a terminal status.
func NewPoller(fetcher StatusFetcher, presenter StatusPresenter, downloads *DownloadService, notifier Notifier, interval, maxWait time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		fetcher:   fetcher,
		presenter: presenter,
		downloads: downloads,
		notifier:  notifier,
		interval:  interval,
		maxWait:   maxWait,
		logger:    logger,
	}
}

// Start begins polling for sess, superseding any active cycle
func (p *Poller) Start(ctx context.Context, sess *Session) {
	p.mu.Lock()
	p.supersedeLocked()
	gen := p.gen
	stop := make(chan struct{})
	p.stop = stop
	p.session = sess
	p.mu.Unlock()

	p.logger.Info().Str("session", sess.ID).Str("request_id", sess.RequestID).Dur("interval", p.interval).Msg("polling started")

	go p.run(ctx, gen, stop, sess)
}

// Stop clears the polling ticker. A request already in flight is not
// aborted; its result is discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.supersedeLocked()
	p.mu.Unlock()
}

// Active reports whether a polling cycle is running
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Poller) supersedeLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if p.session != nil {
		p.session.finish(Outcome{Superseded: true})
		p.session = nil
	}
	p.gen++
}

// endLocked releases the cycle of generation gen without closing its stop
// channel; the polling goroutine is the caller and returns on its own.
func (p *Poller) endLocked(gen uint64) bool {
	if gen != p.gen {
		return false
	}
	p.stop = nil
	p.session = nil
	p.gen++
	return true
}

func (p *Poller) run(ctx context.Context, gen uint64, stop <-chan struct{}, sess *Session) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.maxWait > 0 {
		timer := time.NewTimer(p.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			p.mu.Lock()
			if p.endLocked(gen) {
				// abandoned, neither completed nor failed
				p.presenter.SetStatus(model.JobStatusUnset)
				sess.finish(Outcome{Err: ctx.Err()})
			}
			p.mu.Unlock()
			return
		case <-deadline:
			p.expire(gen, sess)
			return
		case <-ticker.C:
			if done := p.tick(ctx, gen, sess); done {
				return
			}
		}
	}
}

// tick performs one status check and reports whether the cycle is over
func (p *Poller) tick(ctx context.Context, gen uint64, sess *Session) bool {
	log := p.logger.With().Str("session", sess.ID).Str("request_id", sess.RequestID).Logger()

	status, err := p.fetcher.GetStatus(ctx, sess.RequestID)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		log.Debug().Msg("discarding status from superseded cycle")
		return true
	}

	if err != nil {
		// Transient: stay in progress and wait for the next tick.
		log.Warn().Err(err).Msg("status check failed")
		p.presenter.SetStatus(model.JobStatusProcessing)
		p.mu.Unlock()
		return false
	}

	log.Debug().Str("status", string(status.Status)).Msg("status received")
	p.presenter.SetStatus(status.Status)

	switch status.Status {
	case model.JobStatusCompleted:
		text, ok := status.Text()
		if !ok {
			p.mu.Unlock()
			return false
		}
		p.mu.Unlock()
		return p.complete(ctx, gen, sess, text)

	case model.JobStatusFailed:
		p.endLocked(gen)
		p.notifier.Notify(noticeTranslationFailed)
		p.presenter.SetStatus(model.JobStatusFailed)
		p.mu.Unlock()

		log.Info().Msg("translation failed")
		sess.finish(Outcome{Status: model.JobStatusFailed})
		return true
	}

	p.mu.Unlock()
	return false
}

func (p *Poller) complete(ctx context.Context, gen uint64, sess *Session, text string) bool {
	prepared := p.downloads.Prepare(ctx, sess.ID, text, sess.OriginalFilename)

	p.mu.Lock()
	if !p.endLocked(gen) {
		p.mu.Unlock()
		return true
	}
	p.downloads.Publish(prepared)
	p.mu.Unlock()

	p.logger.Info().Str("session", sess.ID).Str("filename", prepared.Artifact.Filename).Msg("translation completed")
	sess.finish(Outcome{Status: model.JobStatusCompleted, Artifact: prepared.Artifact})
	return true
}

func (p *Poller) expire(gen uint64, sess *Session) {
	p.mu.Lock()
	if !p.endLocked(gen) {
		p.mu.Unlock()
		return
	}
	p.notifier.Notify(noticeTranslationTimeout)
	p.presenter.SetStatus(model.JobStatusFailed)
	p.mu.Unlock()

	p.logger.Warn().Str("session", sess.ID).Dur("max_wait", p.maxWait).Msg("polling cut off")
	sess.finish(Outcome{Status: model.JobStatusFailed, Err: ErrPollTimeout})
}
