// Package presenter maps job statuses to the visible progress UI state and
// runs the elapsed-time ticker.
package presenter

import (
	"sync"
	"time"

	"github.com/pdftranslate/client/internal/model"
)

type row struct {
	progress int
	message  string
	spinner  bool
}

var rows = map[model.JobStatus]row{
	model.JobStatusUploading:  {20, "Uploading file...", true},
	model.JobStatusProcessing: {60, "Translation in progress...", true},
	model.JobStatusCompleted:  {100, "Translation completed!", false},
	model.JobStatusFailed:     {0, "Translation failed.", false},
}

// Option configures a Presenter
type Option func(*Presenter)

// WithClock overrides the time source used by the elapsed timer
func WithClock(now func() time.Time) Option {
	return func(p *Presenter) { p.now = now }
}

// WithTickInterval overrides the elapsed timer period (one second by default)
func WithTickInterval(d time.Duration) Option {
	return func(p *Presenter) { p.tick = d }
}

// Presenter holds the progress view. It is safe for concurrent use.
type Presenter struct {
	// emitMu orders mutations and observer callbacks so observers
	// never see an older view after a newer one.
	emitMu sync.Mutex
	mu     sync.Mutex

	view      model.View
	observers []func(model.View)

	now       func() time.Time
	tick      time.Duration
	startedAt time.Time
	timerGen  uint64
	stopTimer chan struct{}
}

// New creates a presenter in the unset state
func New(opts ...Option) *Presenter {
	p := &Presenter{
		now:  time.Now,
		tick: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers an observer called with a snapshot after every change
func (p *Presenter) Subscribe(fn func(model.View)) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

// View returns a snapshot of the visible state
func (p *Presenter) View() model.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// SetStatus applies the visual state for status. Unknown values render as unset.
// UPLOADING starts the elapsed timer only if it is not already running.
func (p *Presenter) SetStatus(status model.JobStatus) {
	p.update(func() bool {
		p.applyLocked(status)

		switch status {
		case model.JobStatusUploading:
			if p.stopTimer == nil {
				p.startTimerLocked()
			}
		case model.JobStatusProcessing:
		default:
			p.stopTimerLocked()
		}
		return true
	})
}

// StartCycle shows UPLOADING and restarts the elapsed timer from zero
func (p *Presenter) StartCycle() {
	p.update(func() bool {
		p.applyLocked(model.JobStatusUploading)
		p.startTimerLocked()
		return true
	})
}

func (p *Presenter) applyLocked(status model.JobStatus) {
	r := rows[status]
	p.view.Status = status
	p.view.Progress = r.progress
	p.view.Message = r.message
	p.view.SpinnerVisible = r.spinner
}

// ShowDownload makes the download affordance visible
func (p *Presenter) ShowDownload(link model.DownloadLink) {
	p.update(func() bool {
		p.view.Download = &link
		return true
	})
}

// HideDownload removes the download affordance
func (p *Presenter) HideDownload() {
	p.update(func() bool {
		p.view.Download = nil
		return true
	})
}

// Close stops the elapsed timer goroutine
func (p *Presenter) Close() {
	p.mu.Lock()
	p.stopTimerLocked()
	p.mu.Unlock()
}

func (p *Presenter) update(mutate func() bool) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if !mutate() {
		p.mu.Unlock()
		return
	}
	snap := p.snapshotLocked()
	observers := p.observers
	p.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (p *Presenter) snapshotLocked() model.View {
	snap := p.view
	if p.view.Download != nil {
		link := *p.view.Download
		snap.Download = &link
	}
	return snap
}

func (p *Presenter) startTimerLocked() {
	p.stopTimerLocked()

	p.timerGen++
	gen := p.timerGen
	stop := make(chan struct{})
	p.stopTimer = stop
	p.startedAt = p.now()
	p.view.ElapsedSeconds = 0
	p.view.TimerVisible = true

	go p.runTimer(gen, stop)
}

func (p *Presenter) stopTimerLocked() {
	if p.stopTimer != nil {
		close(p.stopTimer)
		p.stopTimer = nil
	}
	p.timerGen++
	p.view.ElapsedSeconds = 0
	p.view.TimerVisible = false
}

func (p *Presenter) runTimer(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.onTick(gen)
		}
	}
}

func (p *Presenter) onTick(gen uint64) {
	p.update(func() bool {
		if gen != p.timerGen {
			return false
		}
		p.view.ElapsedSeconds = int(p.now().Sub(p.startedAt) / time.Second)
		return true
	})
}
