package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newgenmusic/models"
	"newgenmusic/storage"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rows keep ObjectID hex strings as keys so ids look the same on every backend.

type postRow struct {
	ID               string         `gorm:"primaryKey;type:char(24)"`
	Title            string         `gorm:"not null"`
	Content          string         `gorm:"not null"`
	Category         string         `gorm:"not null"`
	Type             string         `gorm:"not null"`
	Tags             pq.StringArray `gorm:"type:text[]"`
	Featured         bool           `gorm:"not null"`
	FeaturedImage    string
	FeaturedImageID  string `gorm:"column:featured_image_id"`
	FileURL          string `gorm:"column:file_url"`
	FileID           string `gorm:"column:file_id"`
	FileResourceType string
	OriginalFilename string
	AuthorID         string    `gorm:"column:author_id;type:char(24);not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (postRow) TableName() string { return "posts" }

type userRow struct {
	ID           string `gorm:"primaryKey;type:char(24)"`
	Username     string
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	Role         string
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (userRow) TableName() string { return "users" }

type subscriptionRow struct {
	ID        string `gorm:"primaryKey;type:char(24)"`
	Endpoint  string `gorm:"uniqueIndex"`
	P256dh    string `gorm:"column:p256dh"`
	Auth      string
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (subscriptionRow) TableName() string { return "push_subscriptions" }

// New wires repositories over an open gorm handle whose schema is migrated.
func New(db *gorm.DB) *storage.Repositories {
	return &storage.Repositories{
		Posts:         &PostRepo{db: db},
		Users:         &UserRepo{db: db},
		Subscriptions: &SubscriptionRepo{db: db},
		Close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func translate(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrDuplicate
	}
	return fmt.Errorf("%s: %w", what, err)
}

func parseID(hex string) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(hex)
	return id
}

func toPostRow(p *models.Post) *postRow {
	return &postRow{
		ID:               p.ID.Hex(),
		Title:            p.Title,
		Content:          p.Content,
		Category:         p.Category,
		Type:             string(p.Type),
		Tags:             pq.StringArray(p.Tags),
		Featured:         p.Featured,
		FeaturedImage:    p.FeaturedImage,
		FeaturedImageID:  p.FeaturedImageID,
		FileURL:          p.FileURL,
		FileID:           p.FileID,
		FileResourceType: p.FileResourceType,
		OriginalFilename: p.OriginalFilename,
		AuthorID:         p.AuthorID.Hex(),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (r *postRow) toModel() *models.Post {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &models.Post{
		ID:               parseID(r.ID),
		Title:            r.Title,
		Content:          r.Content,
		Category:         r.Category,
		Type:             models.PostType(r.Type),
		Tags:             tags,
		Featured:         r.Featured,
		FeaturedImage:    r.FeaturedImage,
		FeaturedImageID:  r.FeaturedImageID,
		FileURL:          r.FileURL,
		FileID:           r.FileID,
		FileResourceType: r.FileResourceType,
		OriginalFilename: r.OriginalFilename,
		AuthorID:         parseID(r.AuthorID),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

// likePattern escapes LIKE wildcards so the term matches literally.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

type PostRepo struct {
	db *gorm.DB
}

func (r *PostRepo) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = storage.Now()
	}
	post.UpdatedAt = post.CreatedAt
	if post.Tags == nil {
		post.Tags = []string{}
	}

	if err := r.db.WithContext(ctx).Create(toPostRow(post)).Error; err != nil {
		return translate(err, "insert post")
	}
	return nil
}

func (r *PostRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var row postRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id.Hex()).Error; err != nil {
		return nil, translate(err, "find post")
	}
	return row.toModel(), nil
}

func (r *PostRepo) List(ctx context.Context, f storage.Filter) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).Model(&postRow{})
	if f.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Where("(title ILIKE ? OR content ILIKE ?)", pattern, pattern)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}

	var rows []postRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, translate(err, "find posts")
	}
	posts := make([]*models.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].toModel()
	}
	return posts, nil
}

func (r *PostRepo) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing postRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", post.ID.Hex()).Error; err != nil {
			return translate(err, "find post")
		}

		post.AuthorID = parseID(existing.AuthorID)
		post.CreatedAt = existing.CreatedAt.UTC()
		post.UpdatedAt = storage.Now()
		if post.Tags == nil {
			post.Tags = []string{}
		}
		if err := tx.Save(toPostRow(post)).Error; err != nil {
			return translate(err, "update post")
		}
		return nil
	})
}

func (r *PostRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res := r.db.WithContext(ctx).Delete(&postRow{}, "id = ?", id.Hex())
	if res.Error != nil {
		return translate(res.Error, "delete post")
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *PostRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.WithContext(ctx).Model(&postRow{}).Distinct("category").Pluck("category", &categories).Error; err != nil {
		return nil, translate(err, "distinct categories")
	}
	return storage.UniqueSorted(categories), nil
}

func (r *PostRepo) DistinctTags(ctx context.Context) ([]string, error) {
	var tags []string
	if err := r.db.WithContext(ctx).Raw("SELECT DISTINCT unnest(tags) AS tag FROM posts").Scan(&tags).Error; err != nil {
		return nil, translate(err, "distinct tags")
	}
	return storage.UniqueSorted(tags), nil
}

type UserRepo struct {
	db *gorm.DB
}

func toUserRow(u *models.User) *userRow {
	return &userRow{
		ID:           u.ID.Hex(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *userRow) toModel() *models.User {
	return &models.User{
		ID:           parseID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = storage.NormalizeEmail(user.Email)
	now := storage.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(toUserRow(user)).Error; err != nil {
		return translate(err, "insert user")
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id.Hex()).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return row.toModel(), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "email = ?", storage.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return row.toModel(), nil
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	hexes := make([]string, len(ids))
	for i, id := range ids {
		hexes[i] = id.Hex()
	}

	var rows []userRow
	if err := r.db.WithContext(ctx).Where("id IN ?", hexes).Find(&rows).Error; err != nil {
		return nil, translate(err, "find users")
	}
	for i := range rows {
		u := rows[i].toModel()
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	user.Email = storage.NormalizeEmail(user.Email)
	user.UpdatedAt = storage.Now()

	res := r.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", user.ID.Hex()).Updates(map[string]interface{}{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
		"updated_at":    user.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type SubscriptionRepo struct {
	db *gorm.DB
}

func (r *SubscriptionRepo) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = storage.Now()
	}
	row := subscriptionRow{
		ID:        sub.ID.Hex(),
		Endpoint:  sub.Endpoint,
		P256dh:    sub.P256dh,
		Auth:      sub.Auth,
		CreatedAt: sub.CreatedAt,
	}

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(&row).Error
	if err != nil {
		return translate(err, "upsert subscription")
	}

	var stored subscriptionRow
	if err := db.First(&stored, "endpoint = ?", sub.Endpoint).Error; err != nil {
		return translate(err, "find subscription")
	}
	sub.ID = parseID(stored.ID)
	sub.CreatedAt = stored.CreatedAt.UTC()
	return nil
}

func (r *SubscriptionRepo) List(ctx context.Context) ([]*models.PushSubscription, error) {
	var rows []subscriptionRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translate(err, "find subscriptions")
	}
	subs := make([]*models.PushSubscription, len(rows))
	for i, row := range rows {
		subs[i] = &models.PushSubscription{
			ID:        parseID(row.ID),
			Endpoint:  row.Endpoint,
			P256dh:    row.P256dh,
			Auth:      row.Auth,
			CreatedAt: row.CreatedAt.UTC(),
		}
	}
	return subs, nil
}

func (r *SubscriptionRepo) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	res := r.db.WithContext(ctx).Delete(&subscriptionRow{}, "endpoint = ?", endpoint)
	if res.Error != nil {
		return translate(res.Error, "delete subscription")
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
