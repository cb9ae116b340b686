package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/internal/model"
	"github.com/pdftranslate/client/internal/presenter"
)

const testInterval = 5 * time.Millisecond

var errNetwork = errors.New("connection refused")

type fakeUploadAPI struct {
	mu            sync.Mutex
	descriptors   []*model.UploadDescriptor
	descriptorErr error
	uploadErr     error
	calls         int
	uploads       []string
}

func (f *fakeUploadAPI) GenerateUploadURL(context.Context) (*model.UploadDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.descriptorErr != nil {
		return nil, f.descriptorErr
	}
	d := f.descriptors[0]
	if len(f.descriptors) > 1 {
		f.descriptors = f.descriptors[1:]
	}
	return d, nil
}

func (f *fakeUploadAPI) UploadFile(_ context.Context, uploadURL string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.uploads = append(f.uploads, uploadURL)
	return f.uploadErr
}

func (f *fakeUploadAPI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeFetcher answers status checks from a per-call script
type fakeFetcher struct {
	calls  atomic.Int64
	script func(requestID string, call int) (*model.StatusResponse, error)
}

func (f *fakeFetcher) GetStatus(_ context.Context, requestID string) (*model.StatusResponse, error) {
	n := int(f.calls.Add(1))
	return f.script(requestID, n)
}

func (f *fakeFetcher) Calls() int {
	return int(f.calls.Load())
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func status(s model.JobStatus) *model.StatusResponse {
	return &model.StatusResponse{Status: s}
}

func completed(text string) *model.StatusResponse {
	return &model.StatusResponse{Status: model.JobStatusCompleted, TranslatedText: &text}
}

func pdf(name string) *model.File {
	return &model.File{Name: name, ContentType: model.ContentTypePDF, Data: []byte("%PDF-1.4")}
}

type harness struct {
	api       *fakeUploadAPI
	fetcher   *fakeFetcher
	presenter *presenter.Presenter
	notifier  *recordingNotifier
	downloads *DownloadService
	poller    *Poller
	uploads   *UploadService
}

func newHarness(t *testing.T, script func(string, int) (*model.StatusResponse, error), maxWait time.Duration) *harness {
	t.Helper()

	h := &harness{
		api: &fakeUploadAPI{descriptors: []*model.UploadDescriptor{
			{URL: "https://bucket/r1.pdf", RequestID: "r1"},
			{URL: "https://bucket/r2.pdf", RequestID: "r2"},
		}},
		fetcher:   &fakeFetcher{script: script},
		presenter: presenter.New(presenter.WithTickInterval(time.Hour)),
		notifier:  &recordingNotifier{},
	}
	h.downloads = NewDownloadService(h.presenter, "/api/download", zerolog.Nop())
	h.poller = NewPoller(h.fetcher, h.presenter, h.downloads, h.notifier, testInterval, maxWait, zerolog.Nop())
	h.uploads = NewUploadService(h.api, h.presenter, h.poller, h.downloads, h.notifier, zerolog.Nop())

	t.Cleanup(func() {
		h.uploads.Shutdown()
		h.presenter.Close()
	})
	return h
}

func waitOutcome(t *testing.T, sess *Session) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o, err := sess.Wait(ctx)
	if err != nil {
		t.Fatalf("session did not finish: %v", err)
	}
	return o
}
