package handlers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
)

// UploadField is the multipart field carrying the image.
const UploadField = "image"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadHandler stores content images on local disk and serves them back
// under /uploads.
type UploadHandler struct {
	dir      string
	maxBytes int64
	log      logrus.FieldLogger
}

// NewUploadHandler creates dir when missing.
func NewUploadHandler(dir string, maxBytes int64, log logrus.FieldLogger) (*UploadHandler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadHandler{dir: dir, maxBytes: maxBytes, log: log}, nil
}

func (h *UploadHandler) Register(r chi.Router, g Guards) {
	r.With(g.authed(models.PermContentCreate)...).Post("/upload", h.handleUpload)
	r.With(g.authed(models.PermContentCreate)...).Get("/upload", h.handleList)
	r.With(g.authed(models.PermContentDelete)...).Post("/upload/delete", h.handleDelete)
	r.Get("/uploads/{filename}", h.handleServe)
}

func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respond.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		respond.Error(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] || !isImage(file) {
		respond.Error(w, http.StatusBadRequest, "Only image files are allowed")
		return
	}

	name := fmt.Sprintf("image-%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
	if err := h.save(file, name); err != nil {
		h.log.WithError(err).WithField("filename", name).Error("store upload failed")
		respond.Error(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	h.log.WithFields(logrus.Fields{"filename": name, "bytes": header.Size}).Info("image uploaded")
	respond.JSON(w, http.StatusOK, "File uploaded successfully", dto.UploadedImage{
		Filename: name,
		Path:     publicURL(r, name),
	})
}

func (h *UploadHandler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		h.log.WithError(err).Error("read upload dir failed")
		respond.Error(w, http.StatusInternalServerError, "Failed to read uploads directory")
		return
	}
	images := make([]dto.UploadedImage, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		images = append(images, dto.UploadedImage{Filename: e.Name(), Path: publicURL(r, e.Name())})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Filename < images[j].Filename })
	respond.JSON(w, http.StatusOK, "OK", images)
}

func (h *UploadHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteUploadRequest
	if err := respond.Decode(w, r, &req); err != nil && !errors.Is(err, respond.ErrEmptyBody) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		respond.Error(w, http.StatusBadRequest, "Filename is required")
		return
	}

	path, ok := h.resolve(req.Filename)
	if !ok {
		respond.Error(w, http.StatusNotFound, "File not found")
		return
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			respond.Error(w, http.StatusNotFound, "File not found")
			return
		}
		h.log.WithError(err).WithField("filename", filepath.Base(path)).Error("delete upload failed")
		respond.Error(w, http.StatusInternalServerError, "Failed to delete image")
		return
	}
	respond.JSON(w, http.StatusOK, "Image deleted successfully", nil)
}

func (h *UploadHandler) handleServe(w http.ResponseWriter, r *http.Request) {
	path, ok := h.resolve(chi.URLParam(r, "filename"))
	if !ok {
		respond.Error(w, http.StatusNotFound, "File not found")
		return
	}
	http.ServeFile(w, r, path)
}

// resolve maps a client-supplied name onto a regular image file directly
// inside the upload dir. Directory components are stripped.
func (h *UploadHandler) resolve(name string) (string, bool) {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")))
	if base == "/" || base == "." || !imageExtensions[strings.ToLower(filepath.Ext(base))] {
		return "", false
	}
	path := filepath.Join(h.dir, base)
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

func (h *UploadHandler) save(src io.Reader, name string) error {
	dst, err := os.OpenFile(filepath.Join(h.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return err
	}
	return dst.Close()
}

// isImage sniffs the leading bytes and rewinds the file.
func isImage(file io.ReadSeeker) bool {
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(head[:n]), "image/")
}

func publicURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/uploads/%s", scheme, r.Host, name)
}
