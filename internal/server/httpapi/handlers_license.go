package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/server/models"
)

type generateLicenseResponse struct {
	LicenseKey string `json:"license_key"`
}

type activateLicenseRequest struct {
	LicenseKey string `json:"license_key" validate:"required,uuid4"`
}

func (req *activateLicenseRequest) Bind(r *http.Request) error { return nil }

type activateLicenseResponse struct {
	LicenseKey  string `json:"license_key"`
	ActivatedAt string `json:"activated_at"`
}

type verifyLicenseRequest struct {
	Document string `json:"document" validate:"required"`
}

func (req *verifyLicenseRequest) Bind(r *http.Request) error { return nil }

type verifyLicenseResponse struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleGenerateLicense(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	l, err := s.licenses.Generate(r.Context(), userID)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, &generateLicenseResponse{LicenseKey: l.Key})
}

func (s *Server) handleActivateLicense(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	req := &activateLicenseRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest("invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err.Error()))
		return
	}

	l, err := s.licenses.Activate(r.Context(), req.LicenseKey, userID)
	if err != nil {
		s.metrics.LicenseActivations.WithLabelValues("rejected").Inc()
		_ = render.Render(w, r, errRender(err))
		return
	}
	s.metrics.LicenseActivations.WithLabelValues("activated").Inc()

	render.JSON(w, r, &activateLicenseResponse{
		LicenseKey:  l.Key,
		ActivatedAt: l.ActivatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// handleLicenseDocument serves the user's signed license as a downloadable
// text document.
func (s *Server) handleLicenseDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	doc, err := s.licenses.IssueSignedDocument(r.Context(), userID)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "license"+common.LicenseFileExtension))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Encode())
}

func (s *Server) handleVerifyLicense(w http.ResponseWriter, r *http.Request) {
	req := &verifyLicenseRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, errInvalidRequest("invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		_ = render.Render(w, r, errInvalidRequest(err.Error()))
		return
	}

	doc, err := models.ParseSignedLicense([]byte(req.Document))
	if errors.Is(err, common.ErrInvalidSignature) {
		// A document that cannot even be parsed is simply invalid.
		render.JSON(w, r, &verifyLicenseResponse{Valid: false})
		return
	}
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}

	valid, err := s.licenses.VerifySignedDocument(doc)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}
	render.JSON(w, r, &verifyLicenseResponse{Valid: valid})
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	pem, err := s.licenses.PublicKeyPEM()
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pem)
}
