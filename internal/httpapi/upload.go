package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/pkg/utils"
)

// UploadField is the multipart field carrying the workbook.
const UploadField = "excelFile"

// Upload messages shown on the page.
const (
	MsgTooLarge     = "The uploaded file is too large."
	MsgNoFile       = "No file was uploaded."
	MsgNotXLSX      = "Please upload a valid .xlsx file."
	MsgEmptyFile    = "The uploaded file is empty."
	MsgUploadFailed = "File upload failed with error code %d."
)

// Codes carried by MsgUploadFailed.
const (
	uploadCodePartial    = 3
	uploadCodeUnreadable = 7
)

// upload is a received workbook.
type upload struct {
	Name string
	Data []byte
}

// readUpload pulls the workbook out of a multipart request whose body is
// already capped by http.MaxBytesReader.
func readUpload(r *http.Request) (*upload, error) {
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		return nil, uploadError(err)
	}
	defer file.Close()

	if !utils.HasExtension(header.Filename, ".xlsx") {
		return nil, apperr.Upload(MsgNotXLSX)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err)
	}
	if len(data) == 0 {
		return nil, apperr.Upload(MsgEmptyFile)
	}

	return &upload{Name: header.Filename, Data: data}, nil
}

// uploadError maps a multipart failure onto one of the upload messages.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		return apperr.Upload(MsgTooLarge)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return apperr.Upload(MsgNoFile)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &apperr.Error{Kind: apperr.KindUpload, Message: fmt.Sprintf(MsgUploadFailed, uploadCodePartial), Cause: err}
	default:
		return &apperr.Error{Kind: apperr.KindUpload, Message: fmt.Sprintf(MsgUploadFailed, uploadCodeUnreadable), Cause: err}
	}
}
