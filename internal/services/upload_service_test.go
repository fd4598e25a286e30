package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudconnect/cloudconnect/internal/database/testutil"
	"github.com/cloudconnect/cloudconnect/internal/storage"
	apperrors "github.com/cloudconnect/cloudconnect/pkg/errors"
)

// recordingBlobStore is an in-memory storage.BlobStore that records calls and
// can be told to fail specific object names.
type recordingBlobStore struct {
	mu      sync.Mutex
	puts    []string
	deleted []string
	failPut map[string]error
}

func (f *recordingBlobStore) Put(ctx context.Context, input storage.PutInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failPut[input.Name]; ok {
		return "", err
	}
	f.puts = append(f.puts, input.Name)
	return fmt.Sprintf("/files/%s/%s", input.Owner, input.Name), nil
}

func (f *recordingBlobStore) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *recordingBlobStore) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func newUploadService(t *testing.T, blobs *recordingBlobStore) (*UploadService, *ItemService) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	testutil.MustCreateUser(t, db, ownerA)
	testutil.MustCreateUser(t, db, ownerB)
	items, err := NewItemService(db, blobs)
	require.NoError(t, err)
	svc, err := NewUploadService(items, blobs, NewNameResolver(nil), 2)
	require.NoError(t, err)
	return svc, items
}

func TestUploadBatchStoresEveryFile(t *testing.T) {
	blobs := &recordingBlobStore{}
	svc, items := newUploadService(t, blobs)
	ctx := context.Background()

	results, err := svc.Upload(ctx, ownerA, nil, []UploadFile{
		{Name: "report.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("txt")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		require.Nil(t, result.Err)
		require.NotNil(t, result.Item)
	}
	require.Equal(t, "report.pdf", results[0].Name)
	require.Equal(t, "notes.txt", results[1].Name)

	stored, err := items.List(ctx, ownerA, nil)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestUploadStorageFailureLeavesNoRecord(t *testing.T) {
	blobs := &recordingBlobStore{
		failPut: map[string]error{"broken.txt": errors.New("disk full")},
	}
	svc, items := newUploadService(t, blobs)
	ctx := context.Background()

	results, err := svc.Upload(ctx, ownerA, nil, []UploadFile{
		{Name: "first.txt", ContentType: "text/plain", Data: []byte("1")},
		{Name: "broken.txt", ContentType: "text/plain", Data: []byte("2")},
		{Name: "third.txt", ContentType: "text/plain", Data: []byte("3")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Nil(t, results[0].Err)
	require.Nil(t, results[2].Err)

	require.NotNil(t, results[1].Err)
	require.ErrorIs(t, results[1].Err, apperrors.ErrStorageFailure)
	require.Nil(t, results[1].Item)

	// Only the two successful files were recorded.
	stored, err := items.List(ctx, ownerA, nil)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestUploadPreservesBatchOrder(t *testing.T) {
	blobs := &recordingBlobStore{}
	svc, _ := newUploadService(t, blobs)
	ctx := context.Background()

	var files []UploadFile
	for i := 0; i < 12; i++ {
		files = append(files, UploadFile{
			Name:        fmt.Sprintf("file-%02d.txt", i),
			ContentType: "text/plain",
			Data:        []byte("x"),
		})
	}

	results, err := svc.Upload(ctx, ownerA, nil, files)
	require.NoError(t, err)
	require.Len(t, results, len(files))

	for i, result := range results {
		require.Equal(t, fmt.Sprintf("file-%02d.txt", i), result.Name)
		require.Nil(t, result.Err)
	}
}

func TestUploadRejectsInvalidParent(t *testing.T) {
	blobs := &recordingBlobStore{}
	svc, _ := newUploadService(t, blobs)
	ctx := context.Background()

	bogus := "33333333-3333-3333-3333-333333333333"
	_, err := svc.Upload(ctx, ownerA, &bogus, []UploadFile{
		{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")},
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidParent)
	require.Empty(t, blobs.puts)
}

func TestUploadIntoFolder(t *testing.T) {
	blobs := &recordingBlobStore{}
	svc, items := newUploadService(t, blobs)
	ctx := context.Background()

	folder, err := items.CreateFolder(ctx, ownerA, CreateFolderInput{Name: "inbox"})
	require.NoError(t, err)

	results, err := svc.Upload(ctx, ownerA, &folder.ID, []UploadFile{
		{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")},
	})
	require.NoError(t, err)
	require.Nil(t, results[0].Err)
	require.Equal(t, folder.ID, *results[0].Item.ParentID)
}

func TestUploadCancelledContext(t *testing.T) {
	blobs := &recordingBlobStore{}
	svc, _ := newUploadService(t, blobs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.Upload(ctx, ownerA, nil, []UploadFile{
		{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")},
		{Name: "b.txt", ContentType: "text/plain", Data: []byte("y")},
	})
	if err != nil {
		// The parent lookup may observe the cancellation first.
		return
	}

	for _, result := range results {
		require.NotNil(t, result.Err)
		require.ErrorIs(t, result.Err, apperrors.ErrUploadCancelled)
	}
}

// cancellingBlobStore kills the request context from inside Put, the way a
// client disconnect surfaces while a blob write is in flight.
type cancellingBlobStore struct {
	cancel context.CancelFunc
}

func (c *cancellingBlobStore) Put(ctx context.Context, input storage.PutInput) (string, error) {
	c.cancel()
	return "", ctx.Err()
}

func (c *cancellingBlobStore) Delete(ctx context.Context, url string) error { return nil }

func TestUploadCancelledMidFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blobs := &cancellingBlobStore{cancel: cancel}

	db := testutil.MustOpenTestDB(t)
	testutil.MustCreateUser(t, db, ownerA)
	items, err := NewItemService(db, blobs)
	require.NoError(t, err)
	svc, err := NewUploadService(items, blobs, NewNameResolver(nil), 1)
	require.NoError(t, err)

	results, err := svc.Upload(ctx, ownerA, nil, []UploadFile{
		{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Nil(t, results[0].Item)
	require.NotNil(t, results[0].Err)
	require.ErrorIs(t, results[0].Err, apperrors.ErrUploadCancelled)

	stored, err := items.List(context.Background(), ownerA, nil)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestUploadEmptyBatch(t *testing.T) {
	blobs := &recordingBlobStore{}
	svc, _ := newUploadService(t, blobs)

	results, err := svc.Upload(context.Background(), ownerA, nil, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestUploadRequiresOwner(t *testing.T) {
	blobs := &recordingBlobStore{}
	svc, _ := newUploadService(t, blobs)

	_, err := svc.Upload(context.Background(), "", nil, []UploadFile{
		{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")},
	})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
