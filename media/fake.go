package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Fake is an in-process Store used by tests and by the memory backend when no
// media host is configured.
type Fake struct {
	mu       sync.Mutex
	seq      int
	uploads  []Asset
	deleted  []Asset
	failKind map[Kind]error
}

func NewFake() *Fake {
	return &Fake{failKind: map[Kind]error{}}
}

// FailUploads makes every later upload of kind fail with cause.
func (f *Fake) FailUploads(kind Kind, cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cause == nil {
		delete(f.failKind, kind)
		return
	}
	f.failKind[kind] = cause
}

func (f *Fake) Upload(ctx context.Context, data []byte, folder string, kind Kind) (*Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &UploadError{Folder: folder, Cause: err}
	}
	if cause, ok := f.failKind[kind]; ok {
		return nil, &UploadError{Folder: folder, Cause: cause}
	}
	if len(data) == 0 {
		return nil, &UploadError{Folder: folder, Cause: errors.New("empty file")}
	}

	f.seq++
	resourceType := string(kind)
	if kind == KindAuto {
		resourceType = "video"
	}
	asset := Asset{
		URL:          fmt.Sprintf("https://media.test/%s/%d", folder, f.seq),
		PublicID:     fmt.Sprintf("%s/%d", folder, f.seq),
		ResourceType: resourceType,
	}
	f.uploads = append(f.uploads, asset)
	return &asset, nil
}

func (f *Fake) Delete(_ context.Context, asset Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, asset)
	return nil
}

func (f *Fake) Uploads() []Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Asset(nil), f.uploads...)
}

func (f *Fake) Deleted() []Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Asset(nil), f.deleted...)
}
