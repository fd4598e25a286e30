package models

// ItemKind discriminates the two variants stored in the items table.
type ItemKind string

const (
	ItemKindFile   ItemKind = "file"
	ItemKindFolder ItemKind = "folder"
)

// Item is the polymorphic record for both files and folders. Files carry a
// Location handle returned by the blob store; folders never do. Every query
// against this table must be scoped by OwnerID.
type Item struct {
	BaseModel

	Name     string   `gorm:"not null" json:"name"`
	Kind     ItemKind `gorm:"type:varchar(16);not null;index" json:"kind"`
	OwnerID  string   `gorm:"type:uuid;not null;index:idx_items_owner_parent" json:"owner_id"`
	ParentID *string  `gorm:"type:uuid;index:idx_items_owner_parent" json:"parent_id"`
	Location string   `json:"location,omitempty"`
	Icon     string   `json:"icon,omitempty"`

	Children []Item `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// IsFolder reports whether the item can hold children.
func (i *Item) IsFolder() bool {
	return i.Kind == ItemKindFolder
}
