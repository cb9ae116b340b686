package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdftranslate/client/internal/model"
	"github.com/pdftranslate/client/internal/service"
	"github.com/pdftranslate/client/pkg/response"
)

type fakeUploader struct {
	got  *model.File
	err  error
	sess *service.Session
}

func (f *fakeUploader) Upload(_ context.Context, file *model.File) (*service.Session, error) {
	f.got = file
	if err := service.ValidateFile(file); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fixedView model.View

func (v fixedView) View() model.View { return model.View(v) }

type fakeArtifacts struct {
	artifact *model.Artifact
}

func (f *fakeArtifacts) Current() (*model.Artifact, bool) {
	return f.artifact, f.artifact != nil
}

func newTestApp(t *testing.T, up Uploader, views ViewSource, artifacts ArtifactSource) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{BodyLimit: maxUploadSize + 1024*1024})
	app.Post("/api/upload", NewUploadHandler(up, views, zerolog.Nop()).Upload)
	app.Get("/api/state", NewStateHandler(views).State)
	app.Get("/api/download", NewDownloadHandler(artifacts).Download)
	return app
}

func multipartRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, resp *http.Response) response.ErrorResponse {
	t.Helper()
	var out response.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUpload_Accepted(t *testing.T) {
	up := &fakeUploader{sess: &service.Session{ID: "sess-1", RequestID: "req-1"}}
	views := fixedView{Status: model.JobStatusProcessing, Progress: 60}
	app := newTestApp(t, up, views, &fakeArtifacts{})

	resp, err := app.Test(multipartRequest(t, "report.pdf", "application/pdf", []byte("%PDF-1.4")), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var out model.UploadAcceptedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "sess-1", out.SessionID)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, 60, out.View.Progress)

	require.NotNil(t, up.got)
	assert.Equal(t, "report.pdf", up.got.Name)
	assert.Equal(t, "application/pdf", up.got.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), up.got.Data)
}

func TestUpload_NonPDFRejected(t *testing.T) {
	app := newTestApp(t, &fakeUploader{}, fixedView{}, &fakeArtifacts{})

	resp, err := app.Test(multipartRequest(t, "notes.txt", "text/plain", []byte("hi")), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	out := decodeError(t, resp)
	assert.Equal(t, response.CodeValidationError, out.Error.Code)
	assert.Equal(t, "Only PDF files are allowed", out.Error.Message)
}

func TestUpload_MissingFile(t *testing.T) {
	up := &fakeUploader{}
	app := newTestApp(t, up, fixedView{}, &fakeArtifacts{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, up.got)

	out := decodeError(t, resp)
	assert.Equal(t, "Please select a PDF file first!", out.Error.Message)
}

func TestUpload_PathStrippedFromFilename(t *testing.T) {
	up := &fakeUploader{sess: &service.Session{ID: "s"}}
	app := newTestApp(t, up, fixedView{}, &fakeArtifacts{})

	resp, err := app.Test(multipartRequest(t, "../../etc/report.pdf", "application/pdf", []byte("x")), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "report.pdf", up.got.Name)
}

func TestUpload_BackendFailure(t *testing.T) {
	up := &fakeUploader{err: errors.New("failed to get upload URL: boom")}
	app := newTestApp(t, up, fixedView{}, &fakeArtifacts{})

	resp, err := app.Test(multipartRequest(t, "report.pdf", "application/pdf", []byte("x")), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	out := decodeError(t, resp)
	assert.Equal(t, response.CodeUploadFailed, out.Error.Code)
	assert.Contains(t, out.Error.Message, "boom")
}

func TestState(t *testing.T) {
	views := fixedView{Status: model.JobStatusUploading, Progress: 20, Message: "Uploading file..."}
	app := newTestApp(t, &fakeUploader{}, views, &fakeArtifacts{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/state", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out model.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, model.JobStatusUploading, out.Status)
	assert.Equal(t, 20, out.Progress)
	assert.Equal(t, "Uploading file...", out.Message)
}

func TestDownload_NotFound(t *testing.T) {
	app := newTestApp(t, &fakeUploader{}, fixedView{}, &fakeArtifacts{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/download", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, response.CodeNotFound, decodeError(t, resp).Error.Code)
}

func TestDownload_ServesArtifact(t *testing.T) {
	artifacts := &fakeArtifacts{artifact: &model.Artifact{
		Filename:    "report.txt",
		ContentType: model.ContentTypeText,
		Content:     []byte("hola mundo"),
	}}
	app := newTestApp(t, &fakeUploader{}, fixedView{}, artifacts)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/download", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.ContentTypeText, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.txt"`, resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", string(body))
}
