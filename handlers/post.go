package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"newgenmusic/middleware"
	"newgenmusic/posts"

	"github.com/gin-gonic/gin"
)

// PostHandler serves the /api/posts endpoints.
type PostHandler struct {
	svc       *posts.Service
	maxUpload int64
}

func NewPostHandler(svc *posts.Service, maxUploadBytes int64) *PostHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &PostHandler{svc: svc, maxUpload: maxUploadBytes}
}

func (h *PostHandler) Create(c *gin.Context) {
	if !h.parseForm(c) {
		return
	}
	image, media, ok := h.readUploads(c)
	if !ok {
		return
	}

	req := posts.CreateRequest{
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		Category: c.PostForm("category"),
		Type:     c.PostForm("type"),
		Tags:     c.PostForm("tags"),
		Featured: c.PostForm("featured"),
		Image:    image,
		Media:    media,
	}

	post, err := h.svc.Create(c.Request.Context(), req, middleware.CallerFrom(c))
	if err != nil {
		handleServiceError(c, "CreatePost", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), posts.ListFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Type:     c.Query("type"),
		Featured: c.Query("featured"),
	})
	if err != nil {
		handleServiceError(c, "ListPosts", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, "GetPost", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Categories(c *gin.Context) {
	categories, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		handleServiceError(c, "GetCategories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *PostHandler) Tags(c *gin.Context) {
	tags, err := h.svc.Tags(c.Request.Context())
	if err != nil {
		handleServiceError(c, "GetTags", err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *PostHandler) Update(c *gin.Context) {
	if !h.parseForm(c) {
		return
	}
	image, media, ok := h.readUploads(c)
	if !ok {
		return
	}

	req := posts.UpdateRequest{
		Title:    formValue(c, "title"),
		Content:  formValue(c, "content"),
		Category: formValue(c, "category"),
		Type:     formValue(c, "type"),
		Tags:     formValue(c, "tags"),
		Featured: formValue(c, "featured"),
		Image:    image,
		Media:    media,
	}

	post, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleServiceError(c, "UpdatePost", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, "DeletePost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post removed"})
}

// parseForm accepts multipart and urlencoded bodies.
func (h *PostHandler) parseForm(c *gin.Context) bool {
	// two file parts plus the text fields
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.maxUpload+(1<<20))

	err := c.Request.ParseMultipartForm(h.maxUpload)
	if errors.Is(err, http.ErrNotMultipart) {
		err = c.Request.ParseForm()
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(c, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("Request body exceeds %d MB", h.maxUpload>>20))
		return false
	}
	writeError(c, http.StatusBadRequest, "validation", "Failed to parse form data")
	return false
}

func (h *PostHandler) readUploads(c *gin.Context) (image, media *posts.Upload, ok bool) {
	image, err := readUpload(c, "image")
	if err != nil {
		writeError(c, http.StatusBadRequest, "validation", "Failed to read image: "+err.Error())
		return nil, nil, false
	}
	media, err = readUpload(c, "media")
	if err != nil {
		writeError(c, http.StatusBadRequest, "validation", "Failed to read media: "+err.Error())
		return nil, nil, false
	}
	return image, media, true
}

func readUpload(c *gin.Context, field string) (*posts.Upload, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &posts.Upload{Data: data, Filename: header.Filename}, nil
}

func formValue(c *gin.Context, key string) posts.Optional[string] {
	v, ok := c.GetPostForm(key)
	return posts.Optional[string]{Value: v, Set: ok}
}
