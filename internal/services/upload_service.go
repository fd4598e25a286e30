package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudconnect/cloudconnect/internal/exif"
	"github.com/cloudconnect/cloudconnect/internal/storage"
	apperrors "github.com/cloudconnect/cloudconnect/pkg/errors"
	"github.com/cloudconnect/cloudconnect/pkg/logger"
)

const defaultUploadConcurrency = 4

// UploadFile is one in-memory file of an upload batch.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult reports the outcome for one file, at the same index as its
// input. Exactly one of Item and Err is set.
type UploadResult struct {
	Name string
	Item *ItemDTO
	Err  *apperrors.AppError
}

// UploadService runs the batch upload pipeline: resolve stored names up front,
// then store blobs and persist item records with bounded concurrency.
type UploadService struct {
	items          *ItemService
	blobs          storage.BlobStore
	resolver       *NameResolver
	maxConcurrency int
	log            *zap.Logger
}

// NewUploadService wires the pipeline. maxConcurrency values below one fall
// back to the default.
func NewUploadService(items *ItemService, blobs storage.BlobStore, resolver *NameResolver, maxConcurrency int) (*UploadService, error) {
	if items == nil {
		return nil, errors.New("upload service: item service is required")
	}
	if blobs == nil {
		return nil, errors.New("upload service: blob store is required")
	}
	if resolver == nil {
		resolver = NewNameResolver(nil)
	}
	if maxConcurrency < 1 {
		maxConcurrency = defaultUploadConcurrency
	}

	return &UploadService{
		items:          items,
		blobs:          blobs,
		resolver:       resolver,
		maxConcurrency: maxConcurrency,
		log:            logger.WithModule("upload"),
	}, nil
}

// Upload stores a batch of files under one parent. The batch is all-or-nothing
// only for the parent check; individual files succeed or fail independently,
// and results come back in input order. A failed blob write leaves no item
// record; a failed record write leaves an orphaned blob, which is logged.
func (s *UploadService) Upload(ctx context.Context, ownerID string, parentID *string, files []UploadFile) ([]UploadResult, error) {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []UploadResult{}, nil
	}
	if err := s.items.ValidateParent(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	names := s.resolver.Resolve(s.namingInputs(files))
	results := make([]UploadResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i := range files {
		g.Go(func() error {
			results[i] = s.uploadOne(gctx, ownerID, parentID, names[i], files[i])
			return nil
		})
	}

	// Workers never return errors; failures land in their result slot.
	_ = g.Wait()

	return results, nil
}

func (s *UploadService) uploadOne(ctx context.Context, ownerID string, parentID *string, name string, file UploadFile) UploadResult {
	result := UploadResult{Name: name}

	if ctx.Err() != nil {
		result.Err = apperrors.ErrUploadCancelled.WithInternal(ctx.Err())
		return result
	}

	location, err := s.blobs.Put(ctx, storage.PutInput{
		Owner:       ownerID,
		Name:        name,
		ContentType: file.ContentType,
		Data:        file.Data,
	})
	if err != nil {
		// A context that died mid-write is a cancelled upload, not a storage
		// fault.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Err = apperrors.ErrUploadCancelled.WithInternal(err)
			return result
		}
		s.log.Warn("blob upload failed",
			zap.String("owner_id", ownerID),
			zap.String("name", name),
			zap.Error(err))
		result.Err = apperrors.ErrStorageFailure.WithInternal(err)
		return result
	}

	item, err := s.items.CreateFile(ctx, ownerID, CreateFileInput{
		Name:     name,
		Location: location,
		ParentID: parentID,
	})
	if err != nil {
		// The blob already landed; keep the URL in the log so it can be reaped.
		s.log.Error("file record write failed after blob upload",
			zap.String("owner_id", ownerID),
			zap.String("name", name),
			zap.String("orphaned_blob", location),
			zap.Error(err))
		result.Err = apperrors.ErrPersistFailure.WithInternal(err)
		return result
	}

	result.Item = item
	return result
}

func (s *UploadService) namingInputs(files []UploadFile) []NamingInput {
	inputs := make([]NamingInput, len(files))
	for i, file := range files {
		input := NamingInput{OriginalName: file.Name}
		if strings.HasPrefix(file.ContentType, "image/") {
			input.IsImage = true
			if taken, ok := exif.CaptureTime(file.Data); ok {
				input.CaptureTime = &taken
			}
		}
		inputs[i] = input
	}
	return inputs
}
