package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"roomchat/pkg/logger"

	"github.com/google/uuid"
)

// allowedExtensions mirrors the media types the chat UI can render.
var allowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true,
	".mp4": true, ".webm": true, ".avi": true,
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true,
}

type UploadHandlers struct {
	dir      string
	maxBytes int64
}

type uploadResponse struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

func NewUploadHandlers(dir string, maxBytes int64) (*UploadHandlers, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadHandlers{dir: dir, maxBytes: maxBytes}, nil
}

// Upload accepts one multipart file and returns its served URL. Unlike
// the realtime path, failures here are explicit: the uploader gets a
// JSON error with a reason.
func (h *UploadHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")
	if !allowedExtensions[ext] || !allowedMediaType(contentType) {
		writeError(w, http.StatusBadRequest, "Only images, videos, and audio files are allowed!")
		return
	}

	storedName := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
	dst, err := os.Create(filepath.Join(h.dir, storedName))
	if err != nil {
		logger.Error("Error creating upload file: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the size limit")
			return
		}
		logger.Error("Error writing upload: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{
		FileURL:  "/uploads/" + storedName,
		FileName: header.Filename,
		FileType: contentType,
	})
}

func allowedMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") ||
		strings.HasPrefix(contentType, "video/") ||
		strings.HasPrefix(contentType, "audio/")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
