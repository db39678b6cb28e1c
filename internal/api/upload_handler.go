package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"catalog-builder-service/internal/blob"
	"catalog-builder-service/internal/slug"
)

// multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

type UploadResponse struct {
	URL string `json:"url"`
}

// UploadImage accepts a multipart form with file, bucket and an optional
// folder and answers with the public URL of the stored image.
func (h *HTTPHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadPolicy.MaxBytes+formOverhead)
	if err := r.ParseMultipartForm(h.uploadPolicy.MaxBytes + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, blob.ErrTooLarge.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	bucket := r.FormValue("bucket")
	folder := strings.Trim(r.FormValue("folder"), "/")
	if folder != "" {
		for _, segment := range strings.Split(folder, "/") {
			if !slug.Valid(segment) {
				respondWithFieldError(w, "folder", "slug")
				return
			}
		}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithFieldError(w, "file", "required")
		return
	}
	defer file.Close()

	if _, err := h.uploadPolicy.Check(bucket, header.Size, file); err != nil {
		h.metrics.Upload(bucket, "rejected")
		switch {
		case errors.Is(err, blob.ErrTooLarge):
			respondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blob.ErrNotImage):
			respondWithError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, blob.ErrBucketNotAllowed):
			respondWithFieldError(w, "bucket", "oneof="+strings.Join(h.uploadPolicy.Buckets, " "))
		default:
			zap.S().Errorf("UploadImage failed to inspect file: %v", err)
			respondWithError(w, http.StatusBadRequest, "Failed to read uploaded file")
		}
		return
	}

	objectPath := blob.ObjectPath(folder, currentUser(r).ID, time.Now(), header.Filename)
	url, err := h.blobs.Upload(r.Context(), bucket, objectPath, file)
	if err != nil {
		h.metrics.Upload(bucket, "error")
		if errors.Is(err, blob.ErrNotConfigured) {
			respondWithError(w, http.StatusServiceUnavailable, "Image uploads are not configured")
			return
		}
		zap.S().Errorf("UploadImage blob store failed for %s/%s: %v", bucket, objectPath, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}
	h.metrics.Upload(bucket, "ok")
	respondWithJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
