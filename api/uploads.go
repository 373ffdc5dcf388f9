package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/garnizeh/clientportal/internal/portal"
	"github.com/garnizeh/clientportal/pkg/models"
)

type uploadResponse[T any] struct {
	Success       bool   `json:"success"`
	UploadedFiles []T    `json:"uploaded_files"`
	Message       string `json:"message"`
}

// parseUpload reads a multipart body no larger than the configured limit.
// The whole form is held in memory so a rejected request leaves nothing on
// disk. The returned cleanup must be called.
func (h *PortalHandler) parseUpload(w http.ResponseWriter, r *http.Request) ([]*multipart.FileHeader, func(), error) {
	tooLarge := &portal.CapacityError{Message: fmt.Sprintf("upload exceeds the %d MB limit", h.maxUploadBytes>>20)}
	if r.ContentLength > h.maxUploadBytes {
		return nil, func() {}, tooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, func() {}, tooLarge
		}
		return nil, func() {}, &portal.ValidationError{Field: "files", Message: "a multipart form upload is required"}
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	kept := files[:0]
	for _, fh := range files {
		if fh.Filename != "" {
			kept = append(kept, fh)
		}
	}
	if len(kept) == 0 {
		cleanup()
		return nil, func() {}, &portal.ValidationError{Field: "files", Message: "no files provided"}
	}
	return kept, cleanup, nil
}

// openUploads opens every part. The returned close func releases them.
func openUploads(headers []*multipart.FileHeader) ([]portal.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	out := make([]portal.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		out = append(out, portal.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return out, closeAll, nil
}

func (h *PortalHandler) UploadDocuments(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	headers, cleanup, err := h.parseUpload(w, r)
	defer cleanup()
	if err != nil {
		writeError(w, r, err)
		return
	}
	uploads, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		writeError(w, r, err)
		return
	}

	docs := make([]models.Document, 0, len(uploads))
	for _, u := range uploads {
		doc, err := h.svc.UploadDocument(r.Context(), a.CompanyID, portal.DocumentUpload{
			Upload:      u,
			Category:    r.FormValue("category"),
			Type:        r.FormValue("type"),
			Description: r.FormValue("description"),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		docs = append(docs, *doc)
	}
	writeJSON(w, http.StatusOK, uploadResponse[models.Document]{
		Success:       true,
		UploadedFiles: docs,
		Message:       fmt.Sprintf("%d file(s) uploaded successfully", len(docs)),
	})
}

func (h *PortalHandler) Documents(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	docs, err := h.svc.Documents(r.Context(), a.CompanyID, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// UploadProvisions stores a batch of provision files for one category.
// The category defaults to "general".
func (h *PortalHandler) UploadProvisions(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	headers, cleanup, err := h.parseUpload(w, r)
	defer cleanup()
	if err != nil {
		writeError(w, r, err)
		return
	}
	uploads, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		writeError(w, r, err)
		return
	}

	category := r.FormValue("category")
	if category == "" {
		category = "general"
	}
	provs, err := h.svc.UploadProvisions(r.Context(), a, category, uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse[models.Provision]{
		Success:       true,
		UploadedFiles: provs,
		Message:       fmt.Sprintf("%d file(s) uploaded successfully", len(provs)),
	})
}

func (h *PortalHandler) Provisions(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	provs, err := h.svc.Provisions(r.Context(), a.CompanyID, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, provs)
}
