package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log"

	"newgenmusic/models"
	"newgenmusic/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PostsCollection         = "posts"
	UsersCollection         = "users"
	SubscriptionsCollection = "push_subscriptions"
)

// New wires repositories over an already connected database.
func New(db *mongo.Database) *storage.Repositories {
	return &storage.Repositories{
		Posts:         &PostRepo{coll: db.Collection(PostsCollection)},
		Users:         &UserRepo{coll: db.Collection(UsersCollection)},
		Subscriptions: &SubscriptionRepo{coll: db.Collection(SubscriptionsCollection)},
		Close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

// EnsureIndexes creates the unique and sort indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users.email index: %w", err)
	}
	if _, err := db.Collection(SubscriptionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "endpoint", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("push_subscriptions.endpoint index: %w", err)
	}
	if _, err := db.Collection(PostsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}
	return nil
}

// PostFilter translates a listing filter into a Mongo query document.
func PostFilter(f storage.Filter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = primitive.Regex{Pattern: storage.CategoryPattern(f.Category), Options: "i"}
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: storage.SearchPattern(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"content": pattern},
		}
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	return filter
}

type PostRepo struct {
	coll *mongo.Collection
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

	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

func (r *PostRepo) List(ctx context.Context, f storage.Filter) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, PostFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []*models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepo) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = storage.Now()
	if post.Tags == nil {
		post.Tags = []string{}
	}

	// author and createdAt are fixed at creation, so only the mutable fields are set.
	set := bson.M{
		"title":     post.Title,
		"content":   post.Content,
		"category":  post.Category,
		"type":      post.Type,
		"tags":      post.Tags,
		"featured":  post.Featured,
		"updatedAt": post.UpdatedAt,
	}
	unset := bson.M{}
	optional := map[string]string{
		"featuredImage":    post.FeaturedImage,
		"featuredImageId":  post.FeaturedImageID,
		"fileUrl":          post.FileURL,
		"fileId":           post.FileID,
		"fileResourceType": post.FileResourceType,
		"originalFilename": post.OriginalFilename,
	}
	for field, value := range optional {
		if value == "" {
			unset[field] = ""
		} else {
			set[field] = value
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var stored models.Post
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": post.ID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	post.AuthorID = stored.AuthorID
	post.CreatedAt = stored.CreatedAt
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *PostRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "category")
}

// DistinctTags relies on Mongo flattening array fields in distinct.
func (r *PostRepo) DistinctTags(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "tags")
}

func (r *PostRepo) distinct(ctx context.Context, field string) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, field, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			log.Printf("[distinct] skipping non-string %s value %v", field, v)
			continue
		}
		values = append(values, s)
	}
	return storage.UniqueSorted(values), nil
}

type UserRepo struct {
	coll *mongo.Collection
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = storage.NormalizeEmail(user.Email)
	now := storage.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": storage.NormalizeEmail(email)})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	user.Email = storage.NormalizeEmail(user.Email)
	user.UpdatedAt = storage.Now()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"username":     user.Username,
		"email":        user.Email,
		"passwordHash": user.PasswordHash,
		"role":         user.Role,
		"updatedAt":    user.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type SubscriptionRepo struct {
	coll *mongo.Collection
}

// Upsert: update if the endpoint exists, insert if not.
func (r *SubscriptionRepo) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = storage.Now()
	}

	var stored models.PushSubscription
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"endpoint": sub.Endpoint},
		bson.M{
			"$set": bson.M{"p256dh": sub.P256dh, "auth": sub.Auth},
			"$setOnInsert": bson.M{
				"_id":       sub.ID,
				"endpoint":  sub.Endpoint,
				"createdAt": sub.CreatedAt,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	sub.ID = stored.ID
	sub.CreatedAt = stored.CreatedAt
	return nil
}

func (r *SubscriptionRepo) List(ctx context.Context) ([]*models.PushSubscription, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	subs := []*models.PushSubscription{}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return subs, nil
}

func (r *SubscriptionRepo) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"endpoint": endpoint})
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
