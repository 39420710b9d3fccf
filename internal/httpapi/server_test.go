package httpapi

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/config"
	"github.com/sdsvg/sdsvg-book/internal/converter"
	"github.com/sdsvg/sdsvg-book/internal/metrics"
	"github.com/sdsvg/sdsvg-book/internal/repository"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
	"github.com/sdsvg/sdsvg-book/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type testEnv struct {
	server  *Server
	repo    *repository.MemberRepository
	metrics *metrics.Recorder
	archive string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := repository.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	recorder := metrics.New()
	conv, err := converter.New(config.Default(), repo, zap.NewNop(), recorder)
	require.NoError(t, err)

	archive := t.TempDir()
	srv, err := New(Options{
		Book:           repo,
		Converter:      conv,
		Files:          utils.NewFileManager(archive),
		MaxUploadBytes: 1 << 20,
		Logger:         zap.NewNop(),
		Metrics:        recorder,
	})
	require.NoError(t, err)

	return &testEnv{server: srv, repo: repo, metrics: recorder, archive: archive}
}

func newOfflineServer(t *testing.T) *Server {
	t.Helper()
	conv, err := converter.New(config.Default(), nil, zap.NewNop(), nil)
	require.NoError(t, err)
	srv, err := New(Options{Converter: conv})
	require.NoError(t, err)
	return srv
}

// workbook builds an .xlsx with rows written from A1 down.
func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func sampleWorkbook(t *testing.T) []byte {
	t.Helper()
	data, err := xlsxparser.GenerateSample()
	require.NoError(t, err)
	return data
}

func uploadRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestIndex_EmptyBook(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="excelFile"`)
	assert.NotContains(t, rec.Body.String(), `id="memberBook"`)
	assert.NotContains(t, rec.Body.String(), "alert-")
}

func TestIndex_DatabaseUnavailable(t *testing.T) {
	srv := newOfflineServer(t)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="warningBanner">Database connection failed<`)
}

func TestUpload_SampleWorkbook(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, uploadRequest(t, UploadField, "book.xlsx", sampleWorkbook(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="summaryBanner">Imported 4 member(s) in 2 group(s) from book.xlsx.`)
	assert.Contains(t, body, `<td rowspan="3">Patel Family</td>`)
	assert.Contains(t, body, `<td rowspan="1">Shah Family</td>`)
	assert.Contains(t, body, "<td>Parent</td>")
	assert.Contains(t, body, "<td>Child</td>")
	assert.Less(t, strings.Index(body, "Patel Family"), strings.Index(body, "Shah Family"))

	n, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rec = serve(env.server, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), `<td rowspan="3">Patel Family</td>`)
	assert.NotContains(t, rec.Body.String(), "summaryBanner")
}

func TestUpload_ArchivesSuccessfulImports(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, uploadRequest(t, UploadField, "book.xlsx", sampleWorkbook(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	var archived []string
	require.NoError(t, filepath.WalkDir(env.archive, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			archived = append(archived, path)
		}
		return err
	}))
	require.Len(t, archived, 1)
	assert.True(t, strings.HasSuffix(archived[0], "_book.xlsx"), archived[0])
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		status  int
		message string
	}{
		{
			name:    "wrong extension",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, UploadField, "book.xls", []byte("data")) },
			status:  http.StatusBadRequest,
			message: MsgNotXLSX,
		},
		{
			name:    "no file field",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "other", "book.xlsx", []byte("data")) },
			status:  http.StatusBadRequest,
			message: MsgNoFile,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			status:  http.StatusBadRequest,
			message: MsgNoFile,
		},
		{
			name:    "empty file",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, UploadField, "book.xlsx", nil) },
			status:  http.StatusBadRequest,
			message: MsgEmptyFile,
		},
		{
			name:    "too large",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, UploadField, "book.xlsx", make([]byte, 2<<20)) },
			status:  http.StatusRequestEntityTooLarge,
			message: MsgTooLarge,
		},
		{
			name:    "not a workbook",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, UploadField, "book.xlsx", []byte("plain text")) },
			status:  http.StatusUnprocessableEntity,
			message: "unable to read the spreadsheet",
		},
		{
			name: "missing group column",
			req: func(t *testing.T) *http.Request {
				data := workbook(t, []any{"Last Name", "First Name"}, []any{"Doe", "Jane"})
				return uploadRequest(t, UploadField, "book.xlsx", data)
			},
			status:  http.StatusUnprocessableEntity,
			message: "Missing required column(s): Group",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := serve(env.server, tt.req(t))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `id="errorBanner">`+tt.message)
			assert.NotContains(t, rec.Body.String(), `id="memberBook"`)
		})
	}
}

func TestUpload_NoMemberRowsIsInformational(t *testing.T) {
	env := newTestEnv(t)
	data := workbook(t,
		[]any{"Last Name", "First Name", "Group", "Notes"},
		[]any{"", "", "", "nothing here"},
	)

	rec := serve(env.server, uploadRequest(t, UploadField, "book.xlsx", data))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="infoBanner">No member rows were found in the uploaded file.<`)
	assert.NotContains(t, rec.Body.String(), "errorBanner")
}

func TestUpload_FailureKeepsStoredBook(t *testing.T) {
	env := newTestEnv(t)
	rec := serve(env.server, uploadRequest(t, UploadField, "book.xlsx", sampleWorkbook(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	bad := workbook(t, []any{"Last Name", "First Name"}, []any{"Doe", "Jane"})
	rec = serve(env.server, uploadRequest(t, UploadField, "bad.xlsx", bad))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(env.server, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "Patel Family")
}

func TestUpload_DatabaseUnavailable(t *testing.T) {
	srv := newOfflineServer(t)

	rec := serve(srv, uploadRequest(t, UploadField, "book.xlsx", sampleWorkbook(t)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="errorBanner">Database connection failed<`)
}

func TestSample(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, httptest.NewRequest(http.MethodGet, "/sample.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), sampleFileName)

	wb, err := xlsxparser.Read(rec.Body, sampleFileName)
	require.NoError(t, err)
	assert.Len(t, wb.Rows, 5)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	serve(env.server, uploadRequest(t, UploadField, "book.xlsx", sampleWorkbook(t)))

	rec := serve(env.server, httptest.NewRequest(http.MethodGet, "/export.xml", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, rec.Body.String(), `<memberBook groups="2" members="4">`)

	rec = serve(newOfflineServer(t), httptest.NewRequest(http.MethodGet, "/export.xml", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.server, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","members":0}`, rec.Body.String())

	serve(env.server, uploadRequest(t, UploadField, "book.xlsx", sampleWorkbook(t)))
	rec = serve(env.server, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok","members":4}`, rec.Body.String())

	rec = serve(newOfflineServer(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	serve(env.server, uploadRequest(t, UploadField, "book.xlsx", sampleWorkbook(t)))

	rec := serve(env.server, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sdsvg_imports_total{outcome="success"} 1`)
	assert.Contains(t, string(body), "sdsvg_stored_members 4")

	rec = serve(newOfflineServer(t), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(apperr.Upload(MsgTooLarge)))
	assert.Equal(t, http.StatusBadRequest, statusFor(apperr.Upload(MsgNoFile)))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(apperr.Validation("x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(apperr.Persistence("x", nil)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}
