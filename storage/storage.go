package storage

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"newgenmusic/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no record exists for the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key (user email, push endpoint) is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// Filter narrows a post listing. Zero values mean "no constraint".
type Filter struct {
	// Category must equal the post category, ignoring case.
	Category string
	// Search must appear in the title or the content, ignoring case.
	Search   string
	Type     models.PostType
	Featured *bool
}

// PostRepository is the document collection backing posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	// List returns matching posts, newest first.
	List(ctx context.Context, filter Filter) ([]*models.Post, error)
	// Update replaces the mutable fields of an existing post and refreshes UpdatedAt.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DistinctCategories(ctx context.Context) ([]string, error)
	DistinctTags(ctx context.Context) ([]string, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// GetByEmail matches the email case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByIDs skips ids that do not exist.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type SubscriptionRepository interface {
	// Upsert stores the subscription keyed by endpoint.
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	List(ctx context.Context) ([]*models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Repositories bundles one backend's repositories.
type Repositories struct {
	Posts         PostRepository
	Users         UserRepository
	Subscriptions SubscriptionRepository
	Close         func(ctx context.Context) error
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CategoryPattern is the anchored, case-insensitive pattern for a category filter.
func CategoryPattern(category string) string {
	return "^" + regexp.QuoteMeta(category) + "$"
}

// SearchPattern is the unanchored pattern for a search term.
func SearchPattern(search string) string {
	return regexp.QuoteMeta(search)
}

// Matches reports whether a post satisfies the filter. Backends that cannot push
// the filter down to the database use it directly.
func (f Filter) Matches(p *models.Post) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Content), term) {
			return false
		}
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	return true
}

// SortNewestFirst orders posts by CreatedAt descending, breaking ties by id.
func SortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID.Hex() > posts[j].ID.Hex()
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// UniqueSorted drops empty and repeated values and sorts the rest.
func UniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Now is the timestamp stores assign, truncated to the millisecond precision Mongo keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
