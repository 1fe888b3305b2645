package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/matvulcan/vulcan-backend/internal/services"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// CertificationRequestHandler performs the e-sign vendor call for a
// certification request queued by the review flow. The vendor call lives
// here so no database transaction ever waits on an external API.
type CertificationRequestHandler struct {
	certifications services.CertificationService
}

func NewCertificationRequestHandler(certifications services.CertificationService) *CertificationRequestHandler {
	return &CertificationRequestHandler{certifications: certifications}
}

func (h *CertificationRequestHandler) Type() string { return types.JobTypeCertificationRequest }

func (h *CertificationRequestHandler) Run(jc *Context) error {
	var payload services.CertificationRequestPayload
	if err := jc.Decode(&payload); err != nil {
		return err
	}
	if payload.ApplicationID == uuid.Nil {
		return fmt.Errorf("certification request payload missing application_id")
	}
	return h.certifications.SubmitSigningRequest(jc.Ctx, payload.ApplicationID)
}

// CertificationDownloadHandler fetches the signed form after the vendor
// reports completion and stores it on disk.
type CertificationDownloadHandler struct {
	certifications services.CertificationService
}

func NewCertificationDownloadHandler(certifications services.CertificationService) *CertificationDownloadHandler {
	return &CertificationDownloadHandler{certifications: certifications}
}

func (h *CertificationDownloadHandler) Type() string { return types.JobTypeCertificationDownload }

func (h *CertificationDownloadHandler) Run(jc *Context) error {
	var payload services.CertificationDownloadPayload
	if err := jc.Decode(&payload); err != nil {
		return err
	}
	if payload.CertificationID == uuid.Nil {
		return fmt.Errorf("certification download payload missing certification_id")
	}
	return h.certifications.DownloadSignedDocument(jc.Ctx, payload.CertificationID, payload.DocumentURL)
}
