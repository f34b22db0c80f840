package gallery

import (
	"encoding/json"
	"fmt"

	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/query"
)

// Variation names one fetch configuration of the item dispatcher
type Variation string

const (
	AllContents        Variation = "all-contents"
	LikedContents      Variation = "liked-contents"
	AllSets            Variation = "all-sets"
	AllCollections     Variation = "all-collections"
	SetContents        Variation = "set-contents"
	CollectionContents Variation = "collection-contents"
	SavedCollections   Variation = "saved-collections"
	MyContents         Variation = "my-contents"
)

// Expansion sets
const (
	expandContents          = "idol,group,tag,uploader,likes"
	expandCollectionContent = "idol,group,uploader,likes"
	expandSets              = "idol,group,tag,uploader,contents_via_set"
	expandCollections       = "user,contents_via_collections"
)

// scope is what a mandatory clause may depend on
type scope struct {
	userID     string
	uploaderID string
	parentID   string
}

// strategy is the fixed configuration of one variation
type strategy struct {
	collection string
	prefixed   bool
	// sort overrides the builder's sort key when set
	sort       string
	needParent bool
	// personal clauses read the signed-in user or uploader
	personal   bool
	clause     func(scope) (string, error)
	expand     string
	decode     func(json.RawMessage) (domain.ListItem, error)
}

var variations = map[Variation]strategy{
	AllContents: {
		collection: domain.CollectionContents,
		expand:     expandContents,
		decode:     decodeItem[domain.ContentItem],
	},
	LikedContents: {
		collection: domain.CollectionContents,
		personal:   true,
		clause: func(s scope) (string, error) {
			if s.userID == "" {
				return "", domain.ErrNotAuthenticated
			}
			return fmt.Sprintf(`likes.user?=%q`, s.userID), nil
		},
		expand: expandContents,
		decode: decodeItem[domain.ContentItem],
	},
	AllSets: {
		collection: domain.CollectionSets,
		prefixed:   true,
		sort:       query.SortRecent,
		expand:     expandSets,
		decode:     decodeItem[domain.SetItem],
	},
	AllCollections: {
		collection: domain.CollectionCollections,
		prefixed:   true,
		sort:       query.SortRecent,
		clause: func(scope) (string, error) {
			return "isPublic=true", nil
		},
		expand: expandCollections,
		decode: decodeItem[domain.CollectionItem],
	},
	SetContents: {
		collection: domain.CollectionContents,
		needParent: true,
		clause: func(s scope) (string, error) {
			return fmt.Sprintf(`set=%q`, s.parentID), nil
		},
		expand: expandContents,
		decode: decodeItem[domain.ContentItem],
	},
	CollectionContents: {
		collection: domain.CollectionContents,
		needParent: true,
		clause: func(s scope) (string, error) {
			return fmt.Sprintf(`collections~%q`, s.parentID), nil
		},
		expand: expandCollectionContent,
		decode: decodeItem[domain.ContentItem],
	},
	SavedCollections: {
		collection: domain.CollectionCollections,
		sort:       query.SortRecent,
		personal:   true,
		clause: func(s scope) (string, error) {
			if s.userID == "" {
				return "", domain.ErrNotAuthenticated
			}
			return fmt.Sprintf(`user?~'%s'`, s.userID), nil
		},
		expand: expandCollections,
		decode: decodeItem[domain.CollectionItem],
	},
	MyContents: {
		collection: domain.CollectionContents,
		sort:       query.SortRecent,
		personal:   true,
		clause: func(s scope) (string, error) {
			if s.userID == "" {
				return "", domain.ErrNotAuthenticated
			}
			if s.uploaderID == "" {
				return "", domain.ErrNoUploader
			}
			return fmt.Sprintf(`uploader.id=%q`, s.uploaderID), nil
		},
		expand: expandContents,
		decode: decodeItem[domain.ContentItem],
	},
}

// Variations returns every variation in display order
func Variations() []Variation {
	return []Variation{
		AllContents,
		LikedContents,
		AllSets,
		AllCollections,
		SetContents,
		CollectionContents,
		SavedCollections,
		MyContents,
	}
}

// ParseVariation validates a variation tag
func ParseVariation(s string) (Variation, error) {
	v := Variation(s)
	if _, ok := variations[v]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownVariation, s)
	}
	return v, nil
}

// NeedsParent reports whether the variation lists the children of one record
func (v Variation) NeedsParent() bool {
	return variations[v].needParent
}

// Personal reports whether the variation depends on the auth session
func (v Variation) Personal() bool {
	return variations[v].personal
}

func decodeItem[T any, PT interface {
	*T
	domain.ListItem
}](raw json.RawMessage) (domain.ListItem, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return PT(&v), nil
}
