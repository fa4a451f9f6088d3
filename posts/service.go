package posts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"newgenmusic/media"
	"newgenmusic/models"
	"newgenmusic/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnknownAuthor is shown when a post's author no longer exists.
const UnknownAuthor = "Unknown"

// Folders names the media-store folders uploads go to.
type Folders struct {
	Images string
	Media  string
}

// DefaultFolders derives the image and media folders from a root folder.
func DefaultFolders(root string) Folders {
	if root == "" {
		root = "new-gen-music"
	}
	return Folders{Images: path.Join(root, "images"), Media: path.Join(root, "media")}
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithFolders(f Folders) Option {
	return func(s *Service) { s.folders = f }
}

// Service implements post publishing on top of a repository and a media store.
type Service struct {
	posts    storage.PostRepository
	users    storage.UserRepository
	media    media.Store
	notifier Notifier
	folders  Folders
}

func NewService(posts storage.PostRepository, users storage.UserRepository, store media.Store, opts ...Option) *Service {
	s := &Service{
		posts:    posts,
		users:    users,
		media:    store,
		notifier: nopNotifier{},
		folders:  DefaultFolders(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, req CreateRequest, caller *Caller) (*models.Post, error) {
	if caller == nil || caller.ID.IsZero() {
		return nil, ErrUnauthorized
	}
	for _, f := range []struct{ name, value string }{
		{"title", req.Title},
		{"content", req.Content},
		{"category", req.Category},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, &ValidationError{Field: f.name}
		}
	}
	postType, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:       primitive.NewObjectID(),
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Type:     postType,
		Tags:     ParseTags(req.Tags),
		Featured: ParseFeatured(req.Featured),
		AuthorID: caller.ID,
	}

	var uploaded []media.Asset
	if req.Image.present() {
		img, err := s.media.Upload(ctx, req.Image.Data, s.folders.Images, media.KindImage)
		if err != nil {
			log.Printf("[CreatePost] image upload failed: %v", err)
			return nil, err
		}
		uploaded = append(uploaded, *img)
		setImage(post, img)
	}
	if req.Media.present() {
		file, err := s.media.Upload(ctx, req.Media.Data, s.folders.Media, media.KindAuto)
		if err != nil {
			log.Printf("[CreatePost] media upload failed: %v", err)
			s.discard(ctx, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, *file)
		setFile(post, file, req.Media.Filename)
	}

	if err := s.posts.Create(ctx, post); err != nil {
		log.Printf("[CreatePost] insert failed: %v", err)
		s.discard(ctx, uploaded...)
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.resolveAuthors(ctx, []*models.Post{post}); err != nil {
		log.Printf("[CreatePost] author lookup failed: %v", err)
	}
	s.notifier.PostChanged(ctx, Event{Type: EventCreated, Post: post.Clone()})
	return post, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*models.Post, error) {
	filter := storage.Filter{
		Category: f.Category,
		Search:   f.Search,
		Type:     models.PostType(f.Type),
	}
	switch f.Featured {
	case "true", "false":
		featured := f.Featured == "true"
		filter.Featured = &featured
	}

	list, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if err := s.resolveAuthors(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAuthors(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.posts.DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	return categories, nil
}

func (s *Service) Tags(ctx context.Context) ([]string, error) {
	tags, err := s.posts.DistinctTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("distinct tags: %w", err)
	}
	return tags, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*models.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	// Validate everything before touching the media store.
	for _, f := range []struct {
		name  string
		value Optional[string]
		dst   *string
	}{
		{"title", req.Title, &post.Title},
		{"content", req.Content, &post.Content},
		{"category", req.Category, &post.Category},
	} {
		v, ok := f.value.Get()
		if !ok {
			continue
		}
		if strings.TrimSpace(v) == "" {
			return nil, &ValidationError{Field: f.name}
		}
		*f.dst = v
	}
	if v, ok := req.Type.Get(); ok {
		if post.Type, err = parseType(v); err != nil {
			return nil, err
		}
	}
	if v, ok := req.Tags.Get(); ok {
		post.Tags = ParseTags(v)
	}
	if v, ok := req.Featured.Get(); ok {
		post.Featured = ParseFeatured(v)
	}

	var uploaded, replaced []media.Asset
	if req.Image.present() {
		img, err := s.media.Upload(ctx, req.Image.Data, s.folders.Images, media.KindImage)
		if err != nil {
			log.Printf("[UpdatePost] image upload failed for %s: %v", id, err)
			return nil, err
		}
		uploaded = append(uploaded, *img)
		if old, ok := imageAsset(post); ok {
			replaced = append(replaced, old)
		}
		setImage(post, img)
	}
	if req.Media.present() {
		file, err := s.media.Upload(ctx, req.Media.Data, s.folders.Media, media.KindAuto)
		if err != nil {
			log.Printf("[UpdatePost] media upload failed for %s: %v", id, err)
			s.discard(ctx, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, *file)
		if old, ok := fileAsset(post); ok {
			replaced = append(replaced, old)
		}
		setFile(post, file, req.Media.Filename)
	}

	if err := s.posts.Update(ctx, post); err != nil {
		s.discard(ctx, uploaded...)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Printf("[UpdatePost] write failed for %s: %v", id, err)
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.discard(ctx, replaced...)

	if err := s.resolveAuthors(ctx, []*models.Post{post}); err != nil {
		log.Printf("[UpdatePost] author lookup failed: %v", err)
	}
	s.notifier.PostChanged(ctx, Event{Type: EventUpdated, Post: post.Clone()})
	return post, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	post, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}

	var assets []media.Asset
	if a, ok := imageAsset(post); ok {
		assets = append(assets, a)
	}
	if a, ok := fileAsset(post); ok {
		assets = append(assets, a)
	}
	s.discard(ctx, assets...)

	s.notifier.PostChanged(ctx, Event{Type: EventDeleted, Post: post})
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	post, err := s.posts.GetByID(ctx, oid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// resolveAuthors fills Author on every post with a single user lookup.
func (s *Service) resolveAuthors(ctx context.Context, list []*models.Post) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(list))
	seen := make(map[primitive.ObjectID]bool, len(list))
	for _, p := range list {
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			ids = append(ids, p.AuthorID)
		}
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve authors: %w", err)
	}
	for _, p := range list {
		author := &models.Author{ID: p.AuthorID, Username: UnknownAuthor}
		if u, ok := users[p.AuthorID]; ok {
			author.Username = u.Username
		}
		p.Author = author
	}
	return nil
}

// discard deletes media-store objects that no post references. Failures are only logged.
func (s *Service) discard(ctx context.Context, assets ...media.Asset) {
	for _, a := range assets {
		if err := s.media.Delete(context.WithoutCancel(ctx), a); err != nil {
			log.Printf("[media] failed to delete %s: %v", a.PublicID, err)
		}
	}
}

func parseType(raw string) (models.PostType, error) {
	if raw == "" {
		return models.PostTypeNews, nil
	}
	t := models.PostType(raw)
	if !t.Valid() {
		return "", &ValidationError{Field: "type", Message: "must be one of news, music, video"}
	}
	return t, nil
}

func setImage(p *models.Post, a *media.Asset) {
	p.FeaturedImage = a.URL
	p.FeaturedImageID = a.PublicID
}

func setFile(p *models.Post, a *media.Asset, filename string) {
	p.FileURL = a.URL
	p.FileID = a.PublicID
	p.FileResourceType = a.ResourceType
	p.OriginalFilename = filename
}

func imageAsset(p *models.Post) (media.Asset, bool) {
	if p.FeaturedImageID == "" {
		return media.Asset{}, false
	}
	return media.Asset{URL: p.FeaturedImage, PublicID: p.FeaturedImageID, ResourceType: string(media.KindImage)}, true
}

func fileAsset(p *models.Post) (media.Asset, bool) {
	if p.FileID == "" {
		return media.Asset{}, false
	}
	return media.Asset{URL: p.FileURL, PublicID: p.FileID, ResourceType: p.FileResourceType}, true
}
