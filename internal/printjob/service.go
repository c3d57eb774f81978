// AngelaMos | 2026
// service.go

package printjob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/storage"
)

// DefaultRetentionDays applies when a purge request does not name a window.
const DefaultRetentionDays = 30

// BlobStore is the slice of object storage print jobs need.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a file attached to a request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Service struct {
	repo   Repository
	blobs  BlobStore
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, blobs BlobStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, logger: logger, now: time.Now}
}

func (s *Service) ListTypes(ctx context.Context, activeOnly bool) ([]JobType, error) {
	return s.repo.ListTypes(ctx, activeOnly)
}

func (s *Service) GetType(ctx context.Context, id string) (*JobType, error) {
	return s.repo.GetType(ctx, id)
}

func (s *Service) CreateType(ctx context.Context, req CreateJobTypeRequest) (*JobType, error) {
	if !core.IsPaperFormat(req.Format) {
		return nil, fmt.Errorf("create print job type: format must be one of A0..A6: %w", core.ErrInvalidInput)
	}
	price, err := checkPrice(req.Price)
	if err != nil {
		return nil, fmt.Errorf("create print job type: %w", err)
	}

	t := &JobType{
		ID:          uuid.New().String(),
		Format:      req.Format,
		Color:       req.Color,
		Description: req.Description,
		Price:       price,
		Active:      true,
	}
	if req.Active != nil {
		t.Active = *req.Active
	}

	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) UpdateType(ctx context.Context, id string, req UpdateJobTypeRequest) (*JobType, error) {
	t, err := s.repo.GetType(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Format != nil {
		if !core.IsPaperFormat(*req.Format) {
			return nil, fmt.Errorf("update print job type: format must be one of A0..A6: %w", core.ErrInvalidInput)
		}
		t.Format = *req.Format
	}
	if req.Color != nil {
		t.Color = *req.Color
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Price != nil {
		if t.Price, err = checkPrice(*req.Price); err != nil {
			return nil, fmt.Errorf("update print job type: %w", err)
		}
	}
	if req.Active != nil {
		t.Active = *req.Active
	}

	if err := s.repo.UpdateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) SetTypeActive(ctx context.Context, id string, active bool) (*JobType, error) {
	return s.UpdateType(ctx, id, UpdateJobTypeRequest{Active: &active})
}

func (s *Service) SetTypePrice(ctx context.Context, id string, price decimal.Decimal) (*JobType, error) {
	return s.UpdateType(ctx, id, UpdateJobTypeRequest{Price: &price})
}

func (s *Service) DeleteType(ctx context.Context, id string) error {
	return s.repo.DeleteType(ctx, id)
}

func (s *Service) PriceFor(ctx context.Context, format string, color bool) (decimal.Decimal, error) {
	return s.repo.ActivePrice(ctx, format, color)
}

// Create stores the file and records a print job owned by the actor.
func (s *Service) Create(
	ctx context.Context,
	actor core.Actor,
	format string,
	color bool,
	file Upload,
) (*PrintJob, error) {
	if !core.IsPaperFormat(format) {
		return nil, fmt.Errorf("create print job: format must be one of A0..A6: %w", core.ErrInvalidInput)
	}

	job, err := StoreUpload(ctx, s.blobs, actor.UserID, format, color, file)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, job); err != nil {
		s.discardBlob(ctx, job.StorageKey)
		return nil, err
	}
	return job, nil
}

// StoreUpload puts the file in object storage and returns the unsaved row.
// Order creation calls it inside its own transaction.
func StoreUpload(
	ctx context.Context,
	blobs BlobStore,
	ownerID, format string,
	color bool,
	file Upload,
) (*PrintJob, error) {
	key := storage.PrintJobKey(ownerID, file.Filename)

	url, err := blobs.Put(ctx, key, file.Body, file.Size, file.ContentType)
	if err != nil {
		storageFailuresTotal.WithLabelValues("put").Inc()
		return nil, fmt.Errorf("upload print job: %w", err)
	}

	job := &PrintJob{
		ID:               uuid.New().String(),
		StorageKey:       key,
		URL:              url,
		Format:           format,
		Color:            color,
		OriginalFilename: file.Filename,
	}
	if ownerID != "" {
		job.UserID = &ownerID
	}
	return job, nil
}

func (s *Service) List(ctx context.Context, actor core.Actor, params ListParams) ([]PrintJob, int, error) {
	if !actor.IsAdmin() {
		params.UserID = actor.UserID
	}
	return s.repo.List(ctx, params)
}

func (s *Service) Get(ctx context.Context, actor core.Actor, id string) (*PrintJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(job.UserID) {
		return nil, fmt.Errorf("get print job: %w", core.ErrForbidden)
	}
	return job, nil
}

func (s *Service) Update(ctx context.Context, actor core.Actor, id string, req UpdatePrintJobRequest) (*PrintJob, error) {
	job, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Format != nil {
		if !core.IsPaperFormat(*req.Format) {
			return nil, fmt.Errorf("update print job: format must be one of A0..A6: %w", core.ErrInvalidInput)
		}
		job.Format = *req.Format
	}
	if req.Color != nil {
		job.Color = *req.Color
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Delete removes the row; the blob goes best-effort afterwards.
func (s *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	job, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.discardBlob(ctx, job.StorageKey)
	return nil
}

func (s *Service) Touch(ctx context.Context, actor core.Actor, id string) (*PrintJob, error) {
	job, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.Touch(ctx, id, now); err != nil {
		return nil, err
	}
	job.LastAccessed = now
	return job, nil
}

// Download touches the job and returns the URL to redirect to.
func (s *Service) Download(ctx context.Context, actor core.Actor, id string) (string, error) {
	job, err := s.Touch(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if job.URL == "" {
		return "", fmt.Errorf("download print job: no file stored: %w", core.ErrNotFound)
	}
	return job.URL, nil
}

// Purge removes jobs not accessed for the given number of days; zero means
// DefaultRetentionDays. Blob deletions are best-effort and counted; rows go
// regardless, since order lines keep their history through ON DELETE SET NULL.
func (s *Service) Purge(ctx context.Context, days int) (*PurgeResult, error) {
	if days < 0 {
		return nil, fmt.Errorf("purge print jobs: days must not be negative: %w", core.ErrInvalidInput)
	}
	if days == 0 {
		days = DefaultRetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -days)

	stale, err := s.repo.ListStale(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &PurgeResult{}
	ids := make([]string, 0, len(stale))
	for _, job := range stale {
		if job.StorageKey != "" {
			if err := s.blobs.Delete(ctx, job.StorageKey); err != nil {
				result.StorageFailures++
				storageFailuresTotal.WithLabelValues("delete").Inc()
				s.logger.Warn("purge: blob delete failed",
					"print_job_id", job.ID,
					"key", job.StorageKey,
					"error", err,
				)
			}
		}
		ids = append(ids, job.ID)
	}

	removed, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	result.Removed = removed
	purgedTotal.Add(float64(removed))

	s.logger.Info("print jobs purged",
		"days", days,
		"removed", result.Removed,
		"storage_failures", result.StorageFailures,
	)
	return result, nil
}

func (s *Service) discardBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		storageFailuresTotal.WithLabelValues("delete").Inc()
		s.logger.Warn("blob delete failed", "key", key, "error", err)
	}
}

func checkPrice(price decimal.Decimal) (decimal.Decimal, error) {
	rounded := price.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be greater than 0: %w", core.ErrInvalidInput)
	}
	return rounded, nil
}

// NormalizeFormat upper-cases user input such as "a4".
func NormalizeFormat(format string) string {
	return strings.ToUpper(strings.TrimSpace(format))
}
