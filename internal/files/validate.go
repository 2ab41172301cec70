package files

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

const pdfMimeType = "application/pdf"

// DocumentValidator checks an upload before a slot accepts it. A failing
// file is rejected outright, never silently kept.
type DocumentValidator interface {
	Validate(upload *domain.PendingUpload) error
}

// PDFValidator enforces the single allowed MIME type and the size cap, then
// runs a structural pdfcpu validation over the bytes. Size and type failures
// are distinguishable so the UI can render the right localized message.
type PDFValidator struct {
	maxBytes int64
	conf     *model.Configuration
}

func NewPDFValidator(maxBytes int64) *PDFValidator {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFValidator{maxBytes: maxBytes, conf: conf}
}

func (v *PDFValidator) Validate(upload *domain.PendingUpload) error {
	if int64(len(upload.Data)) > v.maxBytes {
		return customError.WrapFileTooLarge(v.maxBytes)
	}

	if upload.MimeType != pdfMimeType {
		return customError.WrapInvalidFileType(upload.MimeType)
	}

	if err := api.Validate(bytes.NewReader(upload.Data), v.conf); err != nil {
		return customError.WrapInvalidFileType(pdfMimeType)
	}
	return nil
}
