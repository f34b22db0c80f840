package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/galleria/internal/domain"
)

var likeFailed = domain.Notification{
	Severity: domain.SeverityError,
	Summary:  "Error",
	Detail:   "Failed to like/unlike content.",
	Life:     time.Second,
}

// Liker toggles the current user's like on one content.
//
// A toggle is two writes: the users_likes join record and the likes relation
// of the content. They are not transactional, so a failure between them
// leaves the two out of step until the next toggle.
//
// Toggle never touches the bound item. It returns a LikeChange that the
// owner of the item applies with Apply, so a toggle can run on another
// goroutine while the item is being read.
type Liker struct {
	item     *domain.ContentItem
	records  domain.RecordRepository
	identity Identity
	notifier domain.Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	liked bool
	mine  *domain.Like
}

// LikeChange is the local edit a finished toggle calls for. An empty
// Like.ID means the like lists stay as they are.
type LikeChange struct {
	Liked bool
	Like  domain.Like
}

// NewLiker binds a Liker to item
func NewLiker(item *domain.ContentItem, records domain.RecordRepository, identity Identity, notifier domain.Notifier, logger *slog.Logger) *Liker {
	if notifier == nil {
		notifier = domain.NoOpNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Liker{
		item:     item,
		records:  records,
		identity: identity,
		notifier: notifier,
		logger:   logger.With("content_id", item.ID),
	}
}

// Initialize derives the liked flag from the expanded like list
func (l *Liker) Initialize() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mine = nil
	if like := l.item.LikeOf(l.userID()); like != nil {
		cp := *like
		l.mine = &cp
	}
	l.liked = l.mine != nil
}

// IsLiked reports the local liked flag
func (l *Liker) IsLiked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liked
}

// Item returns the bound content
func (l *Liker) Item() *domain.ContentItem {
	return l.item
}

// Toggle likes or unlikes the content
func (l *Liker) Toggle(ctx context.Context) (LikeChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	userID := l.userID()
	if userID == "" {
		l.logger.Error("error liking/unliking content", "error", domain.ErrNotAuthenticated)
		l.notifier.Notify(likeFailed)
		return LikeChange{}, domain.ErrNotAuthenticated
	}

	var (
		change LikeChange
		err    error
	)
	if l.liked {
		change, err = l.unlike(ctx)
	} else {
		change, err = l.like(ctx, userID)
	}
	if err != nil {
		l.logger.Error("error liking/unliking content", "error", err)
		l.notifier.Notify(likeFailed)
		return LikeChange{}, err
	}
	return change, nil
}

// Apply edits the bound item's like lists. It must run on the goroutine
// that reads the item.
func (l *Liker) Apply(c LikeChange) {
	if c.Like.ID == "" {
		return
	}
	if c.Liked {
		if l.item.LikeOf(c.Like.User) == nil {
			l.item.Expand.Likes = append(l.item.Expand.Likes, c.Like)
		}
		if !l.item.Likes.Contains(c.Like.ID) {
			l.item.Likes = append(l.item.Likes, c.Like.ID)
		}
		return
	}
	l.item.Expand.Likes = removeLike(l.item.Expand.Likes, c.Like.ID)
	l.item.Likes = removeID(l.item.Likes, c.Like.ID)
}

func (l *Liker) unlike(ctx context.Context) (LikeChange, error) {
	if l.mine == nil {
		return LikeChange{Liked: true}, nil
	}
	like := *l.mine

	if err := l.records.Delete(ctx, domain.CollectionLikes, like.ID); err != nil {
		return LikeChange{}, fmt.Errorf("delete like: %w", err)
	}
	if _, err := l.records.Update(ctx, domain.CollectionContents, l.item.ID, map[string]string{"likes-": like.ID}); err != nil {
		return LikeChange{}, fmt.Errorf("remove like from content: %w", err)
	}

	l.liked = false
	l.mine = nil
	return LikeChange{Liked: false, Like: like}, nil
}

func (l *Liker) like(ctx context.Context, userID string) (LikeChange, error) {
	raw, err := l.records.Create(ctx, domain.CollectionLikes, map[string]string{
		"user":    userID,
		"content": l.item.ID,
	})
	if err != nil {
		return LikeChange{}, fmt.Errorf("create like: %w", err)
	}

	var like domain.Like
	if err := json.Unmarshal(raw, &like); err != nil {
		return LikeChange{}, fmt.Errorf("decode like: %w", err)
	}

	if _, err := l.records.Update(ctx, domain.CollectionContents, l.item.ID, map[string]string{"likes+": like.ID}); err != nil {
		return LikeChange{}, fmt.Errorf("add like to content: %w", err)
	}

	l.liked = true
	l.mine = &like
	return LikeChange{Liked: true, Like: like}, nil
}

func (l *Liker) userID() string {
	if l.identity == nil {
		return ""
	}
	if u := l.identity.User(); u != nil {
		return u.ID
	}
	return ""
}

func removeLike(likes domain.Expanded[domain.Like], id string) domain.Expanded[domain.Like] {
	for i := range likes {
		if likes[i].ID == id {
			return append(likes[:i], likes[i+1:]...)
		}
	}
	return likes
}

func removeID(ids domain.IDs, id string) domain.IDs {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
