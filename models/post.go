package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostType string

const (
	PostTypeNews  PostType = "news"
	PostTypeMusic PostType = "music"
	PostTypeVideo PostType = "video"
)

func (t PostType) Valid() bool {
	switch t {
	case PostTypeNews, PostTypeMusic, PostTypeVideo:
		return true
	}
	return false
}

type Post struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title            string             `bson:"title" json:"title"`
	Content          string             `bson:"content" json:"content"`
	Category         string             `bson:"category" json:"category"`
	Type             PostType           `bson:"type" json:"type"`
	Tags             []string           `bson:"tags" json:"tags"`
	Featured         bool               `bson:"featured" json:"featured"`
	FeaturedImage    string             `bson:"featuredImage,omitempty" json:"featuredImage,omitempty"`
	FeaturedImageID  string             `bson:"featuredImageId,omitempty" json:"-"`
	FileURL          string             `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	FileID           string             `bson:"fileId,omitempty" json:"-"`
	FileResourceType string             `bson:"fileResourceType,omitempty" json:"-"`
	OriginalFilename string             `bson:"originalFilename,omitempty" json:"originalFilename,omitempty"`
	AuthorID         primitive.ObjectID `bson:"author" json:"-"`
	Author           *Author            `bson:"-" json:"author,omitempty"` // Populated in response only
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Author is the public view of a post's author.
type Author struct {
	ID       primitive.ObjectID `json:"_id"`
	Username string             `json:"username"`
}

// Clone returns a deep copy, so stores can hand out posts without sharing slices.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Tags != nil {
		cp.Tags = append([]string(nil), p.Tags...)
	}
	if p.Author != nil {
		a := *p.Author
		cp.Author = &a
	}
	return &cp
}
