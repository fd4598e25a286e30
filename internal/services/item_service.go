package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cloudconnect/cloudconnect/internal/models"
	"github.com/cloudconnect/cloudconnect/internal/storage"
	apperrors "github.com/cloudconnect/cloudconnect/pkg/errors"
	"github.com/cloudconnect/cloudconnect/pkg/logger"
)

const (
	defaultFolderIcon = "folder"
	defaultFileIcon   = "file"

	// maxDepth bounds ancestor walks so a corrupted parent chain cannot spin forever.
	maxDepth = 512
)

// ItemService manages the owner-scoped file/folder hierarchy. Every query and
// mutation filters by owner unconditionally, so colliding identifiers across
// owners can never leak items.
type ItemService struct {
	db    *gorm.DB
	blobs storage.BlobStore
	log   *zap.Logger
}

// ItemDTO is the API-facing projection of an item record.
type ItemDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      models.ItemKind `json:"kind"`
	ParentID  *string         `json:"parent_id"`
	Location  string          `json:"location,omitempty"`
	Icon      string          `json:"icon"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateFolderInput describes a folder creation payload.
type CreateFolderInput struct {
	Name     string
	ParentID *string
	Icon     string
}

// CreateFileInput describes a file creation payload. Location is the durable
// blob store URL and must not be empty.
type CreateFileInput struct {
	Name     string
	Location string
	ParentID *string
	Icon     string
}

// NewItemService constructs the hierarchy service. The blob store is optional;
// when present, deleting file items also removes their blobs best-effort.
func NewItemService(db *gorm.DB, blobs storage.BlobStore) (*ItemService, error) {
	if db == nil {
		return nil, errors.New("item service: db is required")
	}
	return &ItemService{
		db:    db,
		blobs: blobs,
		log:   logger.WithModule("items"),
	}, nil
}

// List returns the direct children of one (owner, parent) pair, folders before
// files and then by name. Name ordering is case-sensitive (byte-wise).
func (s *ItemService) List(ctx context.Context, ownerID string, parentID *string) ([]ItemDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := s.ValidateParent(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("CASE WHEN kind = 'folder' THEN 0 ELSE 1 END").
		Order("name")
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var items []models.Item
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("item service: list items: %w", err)
	}

	dtos := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, mapItem(item))
	}
	return dtos, nil
}

// CreateFolder registers a new folder under the given parent.
func (s *ItemService) CreateFolder(ctx context.Context, ownerID string, input CreateFolderInput) (*ItemDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.ErrInvalidName
	}
	if err := s.ValidateParent(ctx, ownerID, input.ParentID); err != nil {
		return nil, err
	}

	folder := models.Item{
		Name:     name,
		Kind:     models.ItemKindFolder,
		OwnerID:  ownerID,
		ParentID: input.ParentID,
		Icon:     strings.TrimSpace(input.Icon),
	}

	if err := s.db.WithContext(ctx).Create(&folder).Error; err != nil {
		return nil, fmt.Errorf("item service: create folder: %w", err)
	}

	dto := mapItem(folder)
	return &dto, nil
}

// CreateFile registers a file item pointing at an already-stored blob.
func (s *ItemService) CreateFile(ctx context.Context, ownerID string, input CreateFileInput) (*ItemDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.ErrInvalidName
	}
	if strings.TrimSpace(input.Location) == "" {
		return nil, apperrors.NewBadRequest("file location is required")
	}
	if err := s.ValidateParent(ctx, ownerID, input.ParentID); err != nil {
		return nil, err
	}

	file := models.Item{
		Name:     name,
		Kind:     models.ItemKindFile,
		OwnerID:  ownerID,
		ParentID: input.ParentID,
		Location: strings.TrimSpace(input.Location),
		Icon:     strings.TrimSpace(input.Icon),
	}

	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return nil, fmt.Errorf("item service: create file: %w", err)
	}

	dto := mapItem(file)
	return &dto, nil
}

// Rename updates an item's display name.
func (s *ItemService) Rename(ctx context.Context, ownerID, itemID, newName string) (*ItemDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperrors.ErrInvalidName
	}

	item, err := s.getOwned(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if item.Name != newName {
		if err := s.db.WithContext(ctx).Model(item).Update("name", newName).Error; err != nil {
			return nil, fmt.Errorf("item service: rename item: %w", err)
		}
		item.Name = newName
	}

	dto := mapItem(*item)
	return &dto, nil
}

// SetIcon updates an item's display icon override. An empty icon reverts to
// the kind's default.
func (s *ItemService) SetIcon(ctx context.Context, ownerID, itemID, icon string) (*ItemDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	item, err := s.getOwned(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	icon = strings.TrimSpace(icon)
	if err := s.db.WithContext(ctx).Model(item).Update("icon", icon).Error; err != nil {
		return nil, fmt.Errorf("item service: set icon: %w", err)
	}
	item.Icon = icon

	dto := mapItem(*item)
	return &dto, nil
}

// Move reparents an item. The new parent must be the owner's folder (or root),
// and a folder may never become its own transitive ancestor.
func (s *ItemService) Move(ctx context.Context, ownerID, itemID string, newParentID *string) (*ItemDTO, error) {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	item, err := s.getOwned(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if newParentID != nil {
		if *newParentID == item.ID {
			return nil, apperrors.ErrInvalidParent
		}
		if err := s.ValidateParent(ctx, ownerID, newParentID); err != nil {
			return nil, err
		}
		if err := s.ensureNotDescendant(ctx, ownerID, item.ID, *newParentID); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Model(item).Update("parent_id", newParentID).Error; err != nil {
		return nil, fmt.Errorf("item service: move item: %w", err)
	}
	item.ParentID = newParentID

	dto := mapItem(*item)
	return &dto, nil
}

// Delete removes an item. Folders cascade: the entire subtree is removed in a
// single transaction so no orphans survive. File blobs are deleted from the
// blob store afterwards on a best-effort basis.
func (s *ItemService) Delete(ctx context.Context, ownerID, itemID string) error {
	ctx = ensureContext(ctx)
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	var locations []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.Where("owner_id = ?", ownerID).Take(&item, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("item service: load item: %w", err)
		}

		ids := []string{item.ID}
		if item.Location != "" {
			locations = append(locations, item.Location)
		}

		// Collect the subtree level by level.
		frontier := []string{item.ID}
		for len(frontier) > 0 {
			var children []models.Item
			if err := tx.Where("owner_id = ? AND parent_id IN ?", ownerID, frontier).
				Find(&children).Error; err != nil {
				return fmt.Errorf("item service: collect children: %w", err)
			}

			frontier = frontier[:0]
			for _, child := range children {
				ids = append(ids, child.ID)
				frontier = append(frontier, child.ID)
				if child.Location != "" {
					locations = append(locations, child.Location)
				}
			}
		}

		if err := tx.Where("owner_id = ? AND id IN ?", ownerID, ids).
			Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("item service: delete subtree: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.removeBlobs(ctx, locations)
	return nil
}

// ValidateParent checks that parentID (when set) resolves to a folder owned by
// ownerID. A nil parentID means root and is always valid.
func (s *ItemService) ValidateParent(ctx context.Context, ownerID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if strings.TrimSpace(*parentID) == "" {
		return apperrors.ErrInvalidParent
	}

	var parent models.Item
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Take(&parent, "id = ?", *parentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrInvalidParent
	}
	if err != nil {
		return fmt.Errorf("item service: resolve parent: %w", err)
	}

	if !parent.IsFolder() {
		return apperrors.ErrInvalidParent
	}
	return nil
}

// ensureNotDescendant walks up from candidate and fails when itemID appears in
// its ancestor chain.
func (s *ItemService) ensureNotDescendant(ctx context.Context, ownerID, itemID, candidate string) error {
	current := candidate
	for depth := 0; depth < maxDepth; depth++ {
		if current == itemID {
			return apperrors.ErrInvalidParent
		}

		var node models.Item
		err := s.db.WithContext(ctx).
			Select("id", "parent_id").
			Where("owner_id = ?", ownerID).
			Take(&node, "id = ?", current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidParent
		}
		if err != nil {
			return fmt.Errorf("item service: walk ancestors: %w", err)
		}

		if node.ParentID == nil {
			return nil
		}
		current = *node.ParentID
	}

	return apperrors.ErrInvalidParent
}

func (s *ItemService) getOwned(ctx context.Context, ownerID, itemID string) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Take(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("item service: load item: %w", err)
	}
	return &item, nil
}

func (s *ItemService) removeBlobs(ctx context.Context, locations []string) {
	if s.blobs == nil {
		return
	}
	for _, location := range locations {
		if err := s.blobs.Delete(ctx, location); err != nil {
			s.log.Warn("blob cleanup failed", zap.String("location", location), zap.Error(err))
		}
	}
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return apperrors.ErrUnauthorized
	}
	return nil
}

func mapItem(item models.Item) ItemDTO {
	icon := item.Icon
	if icon == "" {
		if item.Kind == models.ItemKindFolder {
			icon = defaultFolderIcon
		} else {
			icon = defaultFileIcon
		}
	}

	return ItemDTO{
		ID:        item.ID,
		Name:      item.Name,
		Kind:      item.Kind,
		ParentID:  item.ParentID,
		Location:  item.Location,
		Icon:      icon,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
