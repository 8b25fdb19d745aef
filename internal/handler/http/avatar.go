package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sultanmr/aws-grocery/internal/avatar"
	"github.com/sultanmr/aws-grocery/internal/service"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
	"github.com/sultanmr/aws-grocery/pkg/httputil"
)

// multipartOverhead is the allowance for form boundaries and part headers
// on top of the file itself.
const multipartOverhead = 1 << 20

// UploadAvatar handles POST /api/me/avatar with a multipart "file" field.
func (h *AccountHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxAvatarBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, r, apperrors.InvalidInput(fmt.Sprintf("avatar exceeds the %d byte limit", h.maxAvatarBytes)))
			return
		}
		h.writeError(w, r, apperrors.InvalidInput("request must be multipart/form-data"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, apperrors.InvalidInput("no file part"))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.writeError(w, r, apperrors.InvalidInput("no selected file"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, apperrors.InvalidInput("could not read uploaded file"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = avatar.ContentType(header.Filename, data)
	}

	url, err := h.service.UploadAvatar(r.Context(), userID, service.AvatarUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"avatar": url})
}

// FetchAvatar handles GET /api/me/avatar/{filename}
func (h *AccountHandler) FetchAvatar(w http.ResponseWriter, r *http.Request) {
	obj, err := h.service.FetchAvatar(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		w.Header().Del("Cache-Control")
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}
