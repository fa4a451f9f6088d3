package inmemory

import (
	"context"
	"sync"

	"newgenmusic/models"
	"newgenmusic/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store keeps posts, users and push subscriptions in process memory.
// Every read returns a copy, so callers never share state with the store.
type Store struct {
	mu    sync.RWMutex
	posts map[primitive.ObjectID]*models.Post
	users map[primitive.ObjectID]*models.User
	subs  map[string]*models.PushSubscription // by endpoint
}

func New() *Store {
	return &Store{
		posts: make(map[primitive.ObjectID]*models.Post),
		users: make(map[primitive.ObjectID]*models.User),
		subs:  make(map[string]*models.PushSubscription),
	}
}

// Repositories exposes the store through the storage interfaces.
func (s *Store) Repositories() *storage.Repositories {
	return &storage.Repositories{
		Posts:         postRepo{s},
		Users:         userRepo{s},
		Subscriptions: subscriptionRepo{s},
		Close:         func(context.Context) error { return nil },
	}
}

type postRepo struct{ s *Store }

func (r postRepo) Create(ctx context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, ok := r.s.posts[post.ID]; ok {
		return storage.ErrDuplicate
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = storage.Now()
	}
	post.UpdatedAt = post.CreatedAt
	r.s.posts[post.ID] = stripAuthor(post)
	return nil
}

func (r postRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	post, ok := r.s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return post.Clone(), nil
}

func (r postRepo) List(ctx context.Context, filter storage.Filter) ([]*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		if filter.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	storage.SortNewestFirst(out)
	return out, nil
}

func (r postRepo) Update(ctx context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.posts[post.ID]
	if !ok {
		return storage.ErrNotFound
	}
	post.CreatedAt = existing.CreatedAt
	post.AuthorID = existing.AuthorID
	post.UpdatedAt = storage.Now()
	r.s.posts[post.ID] = stripAuthor(post)
	return nil
}

func (r postRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}

func (r postRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	values := make([]string, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		values = append(values, p.Category)
	}
	return storage.UniqueSorted(values), nil
}

func (r postRepo) DistinctTags(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var values []string
	for _, p := range r.s.posts {
		values = append(values, p.Tags...)
	}
	return storage.UniqueSorted(values), nil
}

// stripAuthor stores a copy without the response-only author view.
func stripAuthor(p *models.Post) *models.Post {
	cp := p.Clone()
	cp.Author = nil
	return cp
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = storage.NormalizeEmail(user.Email)
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := storage.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = storage.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r userRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[primitive.ObjectID]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (r userRepo) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return storage.ErrNotFound
	}
	user.Email = storage.NormalizeEmail(user.Email)
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = storage.Now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

type subscriptionRepo struct{ s *Store }

func (r subscriptionRepo) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.subs[sub.Endpoint]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		if sub.ID.IsZero() {
			sub.ID = primitive.NewObjectID()
		}
		sub.CreatedAt = storage.Now()
	}
	cp := *sub
	r.s.subs[sub.Endpoint] = &cp
	return nil
}

func (r subscriptionRepo) List(ctx context.Context) ([]*models.PushSubscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.PushSubscription, 0, len(r.s.subs))
	for _, sub := range r.s.subs {
		cp := *sub
		out = append(out, &cp)
	}
	return out, nil
}

func (r subscriptionRepo) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.subs[endpoint]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.subs, endpoint)
	return nil
}
