package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// maxUploadSize bounds a single backup upload (256 MiB).
const maxUploadSize = 256 << 20

type backupInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type uploadResponse struct {
	backupInfo
	// Status is "stored", "renamed", or "already_present".
	Status string `json:"status"`
}

func (s *Server) handleUploadBackup(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		_ = render.Render(w, r, errInvalidRequest("invalid multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = render.Render(w, r, errInvalidRequest("missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		_ = render.Render(w, r, errInvalidRequest("unreadable file"))
		return
	}

	res, err := s.backups.Ingest(r.Context(), userID, header.Filename, data)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}

	status := "stored"
	switch {
	case res.AlreadyPresent:
		status = "already_present"
	case res.Renamed:
		status = "renamed"
	}
	s.metrics.BackupUploads.WithLabelValues(status).Inc()
	if !res.AlreadyPresent {
		s.metrics.BackupBytes.Add(float64(res.Backup.Size))
	}

	if !res.AlreadyPresent {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, &uploadResponse{
		backupInfo: backupInfo{
			Filename:   res.Backup.Filename,
			Size:       res.Backup.Size,
			Checksum:   res.Backup.Checksum,
			UploadedAt: res.Backup.UploadedAt,
		},
		Status: status,
	})
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	list, err := s.backups.List(r.Context(), userID)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}

	out := make([]backupInfo, 0, len(list))
	for _, b := range list {
		out = append(out, backupInfo{
			Filename:   b.Filename,
			Size:       b.Size,
			Checksum:   b.Checksum,
			UploadedAt: b.UploadedAt,
		})
	}
	render.JSON(w, r, out)
}

func (s *Server) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	filename := chi.URLParam(r, "filename")

	backup, data, err := s.backups.Retrieve(r.Context(), userID, filename)
	if err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.Filename))
	w.Header().Set("X-Checksum-Sha256", backup.Checksum)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	filename := chi.URLParam(r, "filename")

	if err := s.backups.Delete(r.Context(), userID, filename); err != nil {
		_ = render.Render(w, r, errRender(err))
		return
	}
	render.NoContent(w, r)
}
