package server

import (
	"fmt"
	"net/http"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/services/upload"
)

// handleHoldingsUpload handles POST /api/holdings/upload: a multipart
// payload with exactly one spreadsheet under the "file" field.
func (s *Server) handleHoldingsUpload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize+(1<<20))
	if err := r.ParseMultipartForm(upload.MaxFileSize); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid multipart payload: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if fields := r.MultipartForm.File["file"]; len(fields) != 1 {
		WriteError(w, http.StatusBadRequest, "exactly one file must be uploaded")
		return
	}

	userID := common.ResolveUserID(r.Context())

	result, err := s.app.UploadService.Process(r.Context(), userID, header.Filename, header.Size, file, nil)
	if err != nil {
		// The result carries the terminal error state for the client.
		WriteJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
