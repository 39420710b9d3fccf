package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/converter"
	"github.com/sdsvg/sdsvg-book/internal/repository"
	"github.com/sdsvg/sdsvg-book/internal/types"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
	"github.com/sdsvg/sdsvg-book/internal/xmlwriter"
	"go.uber.org/zap"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sampleFileName  = "sdsvg-sample.xlsx"
	exportFileName  = "sdsvg-book.xml"
)

// page is the data behind templates/index.html. At most one of Error, Info
// and Warning is set.
type page struct {
	Groups  []types.Group
	Members int

	Error   string
	Info    string
	Warning string

	// Summary is set after a successful import.
	Summary *types.ImportSummary

	MaxUploadMB int64
}

func (s *Server) newPage() *page {
	return &page{MaxUploadMB: s.maxUpload >> 20}
}

func (p *page) setGroups(groups []types.Group) {
	p.Groups = groups
	p.Members = 0
	for _, g := range groups {
		p.Members += g.RowCount
	}
}

// handleIndex shows the stored book.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	p := s.newPage()

	if s.book == nil {
		p.Warning = repository.MsgConnectFailed
		s.render(w, http.StatusOK, p)
		return
	}

	groups, err := s.book.LoadAll(r.Context())
	if err != nil {
		s.logger.Warn("unable to load member book", zap.Error(err))
		p.Warning = apperr.UserMessage(err)
		s.render(w, http.StatusOK, p)
		return
	}

	p.setGroups(groups)
	s.render(w, http.StatusOK, p)
}

// handleUpload imports the posted workbook and re-renders the page.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	p := s.newPage()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	up, err := readUpload(r)
	if err != nil {
		s.logger.Info("upload rejected", zap.Error(err))
		p.Error = apperr.UserMessage(err)
		s.render(w, statusFor(err), p)
		return
	}

	wb, err := xlsxparser.Read(bytes.NewReader(up.Data), up.Name)
	if err != nil {
		s.logger.Info("unable to decode upload", zap.String("file", up.Name), zap.Error(err))
		p.Error = apperr.UserMessage(err)
		s.render(w, statusFor(err), p)
		return
	}

	result := s.converter.Run(r.Context(), wb, false)
	if !result.Success {
		if errors.Is(result.Error, converter.ErrNoMemberRows) {
			p.Info = apperr.UserMessage(result.Error)
			s.render(w, http.StatusOK, p)
			return
		}
		p.Error = apperr.UserMessage(result.Error)
		s.render(w, statusFor(result.Error), p)
		return
	}

	if s.files != nil {
		path, err := s.files.ArchiveUpload(up.Name, up.Data)
		if err != nil {
			s.logger.Warn("unable to archive upload", zap.String("file", up.Name), zap.Error(err))
		} else {
			s.logger.Debug("upload archived", zap.String("path", path))
		}
	}

	p.setGroups(result.Groups)
	p.Summary = &result.Summary
	s.render(w, http.StatusOK, p)
}

// handleSample serves the sample workbook.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	data, err := xlsxparser.GenerateSample()
	if err != nil {
		s.logger.Error("unable to build sample workbook", zap.Error(err))
		http.Error(w, apperr.GenericMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sampleFileName+`"`)
	w.Write(data)
}

// handleExport serves the stored book as XML.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.book == nil {
		http.Error(w, repository.MsgConnectFailed, http.StatusServiceUnavailable)
		return
	}

	groups, err := s.book.LoadAll(r.Context())
	if err != nil {
		s.logger.Warn("unable to load member book", zap.Error(err))
		http.Error(w, apperr.UserMessage(err), http.StatusServiceUnavailable)
		return
	}

	data, err := xmlwriter.Generate(groups)
	if err != nil {
		s.logger.Error("unable to render export", zap.Error(err))
		http.Error(w, apperr.GenericMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName+`"`)
	w.Write(data)
}

// handleHealth reports whether the database answers and how many members
// it holds.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "unavailable"}
	code := http.StatusServiceUnavailable

	if s.book != nil {
		if err := s.book.Ping(r.Context()); err != nil {
			s.logger.Warn("database ping failed", zap.Error(err))
		} else if n, err := s.book.Count(r.Context()); err != nil {
			s.logger.Warn("unable to count members", zap.Error(err))
		} else {
			s.metrics.SetStoredMembers(n)
			body = map[string]any{"status": "ok", "members": n}
			code = http.StatusOK
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// statusFor picks the response status for a classified failure.
func statusFor(err error) int {
	if apperr.UserMessage(err) == MsgTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	kind, ok := apperr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperr.KindUpload:
		return http.StatusBadRequest
	case apperr.KindDecode, apperr.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
