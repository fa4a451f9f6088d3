package media

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the resource-type hint passed to the media host.
type Kind string

const (
	KindImage Kind = "image"
	// KindAuto lets the host detect audio, video or raw files.
	KindAuto Kind = "auto"
)

// ErrUploadFailed matches every error returned by a failed upload.
var ErrUploadFailed = errors.New("media upload failed")

// UploadError carries the cause of a failed upload.
type UploadError struct {
	Folder string
	Cause  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("media upload to %q failed: %v", e.Folder, e.Cause)
}

func (e *UploadError) Unwrap() []error {
	return []error{ErrUploadFailed, e.Cause}
}

// Asset is an object stored on the media host.
type Asset struct {
	URL          string
	PublicID     string
	ResourceType string
}

// Store uploads byte buffers to a remote object store and returns their public URL.
type Store interface {
	// Upload makes a single attempt. Failures are *UploadError.
	Upload(ctx context.Context, data []byte, folder string, kind Kind) (*Asset, error)
	Delete(ctx context.Context, asset Asset) error
}
