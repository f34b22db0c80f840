package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the datetime format PocketBase uses in JSON payloads and filters
const DateTimeLayout = "2006-01-02 15:04:05.000Z"

// DateTime wraps time.Time with PocketBase's JSON encoding
type DateTime struct {
	time.Time
}

// UnmarshalJSON accepts PocketBase datetimes, RFC3339 values and empty strings
func (d *DateTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{DateTimeLayout, "2006-01-02 15:04:05Z", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid datetime %q", s)
}

// MarshalJSON encodes the value in PocketBase's layout
func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(strconv.Quote(d.UTC().Format(DateTimeLayout))), nil
}

// IDs holds relation ids. PocketBase encodes single relations as a string and
// multiple relations as an array; both decode into IDs.
type IDs []string

// UnmarshalJSON accepts a string, an array of strings or null
func (ids *IDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ids = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*ids = nil
		} else {
			*ids = IDs{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*ids = list
	return nil
}

// First returns the first id or an empty string
func (ids IDs) First() string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// Contains reports whether id is in the list
func (ids IDs) Contains(id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Expanded holds an expanded relation. A single relation expands to an object,
// a multiple relation to an array; both decode into a slice.
type Expanded[T any] []T

// UnmarshalJSON accepts an object, an array of objects or null
func (e *Expanded[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}
	if data[0] == '{' {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*e = Expanded[T]{v}
		return nil
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*e = list
	return nil
}

// Record carries the fields every PocketBase record has
type Record struct {
	ID             string   `json:"id"`
	CollectionID   string   `json:"collectionId,omitempty"`
	CollectionName string   `json:"collectionName,omitempty"`
	Created        DateTime `json:"created"`
	Updated        DateTime `json:"updated"`
}

func (r *Record) GetID() string         { return r.ID }
func (r *Record) GetCreated() time.Time { return r.Created.Time }

// User is an auth record of the users collection
type User struct {
	Record
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// DisplayName returns the most readable identifier of the user
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Uploader is the public profile a user publishes contents under
type Uploader struct {
	Record
	User IDs    `json:"user"`
	Name string `json:"name"`
}

// Idol is a filterable person
type Idol struct {
	Record
	Name  string `json:"name"`
	Group IDs    `json:"group,omitempty"`
}

// Group is a filterable group of idols
type Group struct {
	Record
	Name string `json:"name"`
}

// Tag is a free-form label
type Tag struct {
	Record
	Name string `json:"name"`
}

// Like is the join record between a user and a content
type Like struct {
	Record
	User    string `json:"user"`
	Content string `json:"content"`
}

// ContentExpand holds the expanded relations of a content
type ContentExpand struct {
	Idol        Expanded[Idol]           `json:"idol,omitempty"`
	Group       Expanded[Group]          `json:"group,omitempty"`
	Tag         Expanded[Tag]            `json:"tag,omitempty"`
	Uploader    Expanded[Uploader]       `json:"uploader,omitempty"`
	Set         Expanded[SetItem]        `json:"set,omitempty"`
	Collections Expanded[CollectionItem] `json:"collections,omitempty"`
	Likes       Expanded[Like]           `json:"likes,omitempty"`
}

// ContentItem is a single media file with its metadata
type ContentItem struct {
	Record
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	File        string        `json:"file"`
	Filetype    IDs           `json:"filetype,omitempty"`
	Idol        IDs           `json:"idol,omitempty"`
	Group       IDs           `json:"group,omitempty"`
	Uploader    IDs           `json:"uploader,omitempty"`
	Tag         IDs           `json:"tag,omitempty"`
	Set         IDs           `json:"set,omitempty"`
	Collections IDs           `json:"collections,omitempty"`
	Likes       IDs           `json:"likes,omitempty"`
	Expand      ContentExpand `json:"expand"`
}

// LikedBy reports whether userID appears in the expanded like list
func (c *ContentItem) LikedBy(userID string) bool {
	return c.LikeOf(userID) != nil
}

// LikeOf returns the expanded like record of userID, if any
func (c *ContentItem) LikeOf(userID string) *Like {
	if userID == "" {
		return nil
	}
	for i := range c.Expand.Likes {
		if c.Expand.Likes[i].User == userID {
			return &c.Expand.Likes[i]
		}
	}
	return nil
}

func (c *ContentItem) GetTitle() string    { return c.Title }
func (c *ContentItem) GetItemType() string { return "content" }

func (c *ContentItem) GetDescription() string {
	var parts []string
	for _, idol := range c.Expand.Idol {
		parts = append(parts, idol.Name)
	}
	for _, up := range c.Expand.Uploader {
		parts = append(parts, "by "+up.Name)
	}
	parts = append(parts, fmt.Sprintf("♥ %d", len(c.Likes)))
	return strings.Join(parts, " · ")
}

// SetExpand holds the expanded relations of a set
type SetExpand struct {
	Group    Expanded[Group]       `json:"group,omitempty"`
	Idol     Expanded[Idol]        `json:"idol,omitempty"`
	Tag      Expanded[Tag]         `json:"tag,omitempty"`
	Uploader Expanded[Uploader]    `json:"uploader,omitempty"`
	Contents Expanded[ContentItem] `json:"contents_via_set,omitempty"`
}

// SetItem groups contents published together
type SetItem struct {
	Record
	Title    string    `json:"title"`
	Idol     IDs       `json:"idol,omitempty"`
	Group    IDs       `json:"group,omitempty"`
	Uploader IDs       `json:"uploader,omitempty"`
	Expand   SetExpand `json:"expand"`
}

func (s *SetItem) GetTitle() string    { return s.Title }
func (s *SetItem) GetItemType() string { return "set" }

func (s *SetItem) GetDescription() string {
	return fmt.Sprintf("%d contents", len(s.Expand.Contents))
}

// CollectionExpand holds the expanded relations of a collection
type CollectionExpand struct {
	User     Expanded[User]        `json:"user,omitempty"`
	Uploader Expanded[Uploader]    `json:"uploader,omitempty"`
	Contents Expanded[ContentItem] `json:"contents_via_collections,omitempty"`
}

// CollectionItem is a user-curated list of contents
type CollectionItem struct {
	Record
	Title    string           `json:"title"`
	File     string           `json:"file,omitempty"`
	User     IDs              `json:"user,omitempty"`
	Uploader IDs              `json:"uploader,omitempty"`
	IsPublic bool             `json:"isPublic"`
	Expand   CollectionExpand `json:"expand"`
}

func (c *CollectionItem) GetTitle() string    { return c.Title }
func (c *CollectionItem) GetItemType() string { return "collection" }

func (c *CollectionItem) GetDescription() string {
	desc := fmt.Sprintf("%d contents", len(c.Expand.Contents))
	if len(c.Expand.User) > 0 {
		desc += " · " + c.Expand.User[0].DisplayName()
	}
	return desc
}
