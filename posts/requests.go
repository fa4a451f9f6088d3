package posts

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller is the authenticated identity performing a request.
type Caller struct {
	ID   primitive.ObjectID
	Role string
}

// Optional distinguishes "field absent" from "field present with a zero value".
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// Upload is one file part of a multipart request.
type Upload struct {
	Data     []byte
	Filename string
}

func (u *Upload) present() bool {
	return u != nil && len(u.Data) > 0
}

// CreateRequest carries raw wire values; the service decodes them.
type CreateRequest struct {
	Title    string
	Content  string
	Category string
	Type     string
	Tags     string
	Featured string
	Image    *Upload
	Media    *Upload
}

type UpdateRequest struct {
	Title    Optional[string]
	Content  Optional[string]
	Category Optional[string]
	Type     Optional[string]
	Tags     Optional[string]
	Featured Optional[string]
	Image    *Upload
	Media    *Upload
}

// ListFilter holds the raw query parameters of a listing.
type ListFilter struct {
	Category string
	Search   string
	Type     string
	Featured string
}

// ParseTags splits a comma-separated tag list, trimming each tag and dropping empties.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ParseFeatured treats only the literal "true" as true.
func ParseFeatured(raw string) bool {
	return raw == "true"
}
