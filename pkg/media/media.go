package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"coursehub/pkg/apperr"
	"coursehub/pkg/logging"
	"coursehub/pkg/middleware"
	"coursehub/pkg/models"
	"coursehub/pkg/respond"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

const maxUploadSize = 50 << 20

// ObjectStore is the part of *minio.Client used here.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

type Service struct {
	db        *gorm.DB
	objects   ObjectStore
	bucket    string
	publicURL string
}

func NewService(db *gorm.DB, objects ObjectStore, bucket, publicURL string) *Service {
	return &Service{db: db, objects: objects, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// ObjectKey names a new object, keeping the lowercased extension of fileName.
func ObjectKey(fileName string) string {
	return "media/" + uuid.NewString() + strings.ToLower(path.Ext(fileName))
}

func (s *Service) URL(key string) string {
	return s.publicURL + "/" + s.bucket + "/" + key
}

func (s *Service) Upload(ctx context.Context, uploader uint, fileName, contentType string, size int64, r io.Reader) (*models.Media, error) {
	key := ObjectKey(fileName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.objects.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	m := &models.Media{
		ObjectKey:   key,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		URL:         s.URL(key),
		UploadedBy:  uploader,
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if rmErr := s.objects.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); rmErr != nil {
			logging.FromContext(ctx).Warn("remove orphaned object", "key", key, "error", rmErr)
		}
		return nil, fmt.Errorf("save media %s: %w", key, err)
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Media, error) {
	var m models.Media
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("media %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load media %d: %w", id, err)
	}
	return &m, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.objects.RemoveObject(ctx, s.bucket, m.ObjectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", m.ObjectKey, err)
	}
	if err := s.db.WithContext(ctx).Delete(m).Error; err != nil {
		return fmt.Errorf("delete media %d: %w", id, err)
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type mediaResponse struct {
	ID          uint   `json:"id"`
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func newMediaResponse(m *models.Media) mediaResponse {
	return mediaResponse{ID: m.ID, URL: m.URL, FileName: m.FileName, ContentType: m.ContentType, Size: m.Size}
}

// Upload stores the multipart "file" field and returns its public URL.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respond.Error(w, r, apperr.Wrap(apperr.KindBadRequest, err, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, apperr.Wrap(apperr.KindBadRequest, err, "missing file"))
		return
	}
	defer file.Close()

	m, err := h.svc.Upload(r.Context(), user.ID, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, newMediaResponse(m))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, newMediaResponse(m))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.UintVar(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
