package domain

import "time"

// ListItem is the polymorphic interface for records shown in lists.
// ContentItem, SetItem and CollectionItem implement it directly.
type ListItem interface {
	// GetID returns the record id
	GetID() string

	// GetTitle returns the display title
	GetTitle() string

	// GetDescription returns secondary info for display
	GetDescription() string

	// GetItemType returns "content", "set" or "collection"
	GetItemType() string

	// GetCreated returns the creation timestamp
	GetCreated() time.Time
}

var (
	_ ListItem = (*ContentItem)(nil)
	_ ListItem = (*SetItem)(nil)
	_ ListItem = (*CollectionItem)(nil)
)
