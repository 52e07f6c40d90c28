package media

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/storage"
)

// Kind groups uploaded files by purpose. It doubles as the object key prefix.
type Kind string

const (
	KindAvatar     Kind = "avatars"
	KindCoverImage Kind = "covers"
	KindVideo      Kind = "videos"
	KindThumbnail  Kind = "thumbnails"
)

// Asset is a file that now lives in object storage.
type Asset struct {
	URL string
	// Duration is set for videos when probing succeeded, in seconds.
	Duration float64
}

// Prober measures the duration of a local media file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Service moves uploaded files from local staging to object storage.
type Service struct {
	staging *Staging
	store   storage.ObjectStore
	prober  Prober
}

// NewService wires a media service. prober may be nil.
func NewService(staging *Staging, store storage.ObjectStore, prober Prober) *Service {
	return &Service{staging: staging, store: store, prober: prober}
}

// Upload stages a multipart file and pushes it to object storage.
func (s *Service) Upload(ctx context.Context, fh *multipart.FileHeader, kind Kind) (Asset, error) {
	if fh == nil {
		return Asset{}, errors.New("no file provided")
	}

	src, err := fh.Open()
	if err != nil {
		return Asset{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	path, err := s.staging.Store(ctx, fh.Filename, src)
	if err != nil {
		return Asset{}, err
	}

	return s.UploadStaged(ctx, path, kind)
}

// UploadStaged pushes a staged file to object storage. The local file is
// removed whether or not the upload succeeds.
func (s *Service) UploadStaged(ctx context.Context, localPath string, kind Kind) (Asset, error) {
	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()
	logger := logging.FromContext(ctx)

	defer func() {
		if err := s.staging.Remove(localPath); err != nil {
			logger.Warn("remove staged file", "path", localPath, "error", err)
		}
	}()

	var asset Asset
	if kind == KindVideo && s.prober != nil {
		duration, err := s.prober.Duration(ctx, localPath)
		if err != nil {
			logger.Warn("probe video duration", "path", localPath, "error", err)
		} else {
			asset.Duration = duration
		}
	}

	file, err := os.Open(localPath)
	if err != nil {
		metrics.MediaOperationsTotal.WithLabelValues("upload", string(kind), "failure").Inc()
		span.Fail(err)
		return Asset{}, fmt.Errorf("open staged file: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		metrics.MediaUploadBytes.WithLabelValues(string(kind)).Add(float64(info.Size()))
	}

	key := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), filepath.Ext(localPath))
	location, err := s.store.Save(ctx, key, file)
	if err != nil {
		metrics.MediaOperationsTotal.WithLabelValues("upload", string(kind), "failure").Inc()
		span.Fail(err)
		return Asset{}, fmt.Errorf("upload %s: %w", kind, err)
	}

	metrics.MediaOperationsTotal.WithLabelValues("upload", string(kind), "success").Inc()
	logger.Info("media uploaded", "kind", string(kind), "location", location)

	asset.URL = location
	return asset, nil
}

// Delete removes a previously uploaded file by its stored location.
func (s *Service) Delete(ctx context.Context, location string) error {
	if err := s.store.Delete(ctx, location); err != nil {
		metrics.MediaOperationsTotal.WithLabelValues("delete", "", "failure").Inc()
		return fmt.Errorf("delete media: %w", err)
	}
	metrics.MediaOperationsTotal.WithLabelValues("delete", "", "success").Inc()
	return nil
}
