package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// uploadAPI is the part of cloudinary's uploader this adapter uses.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryConfig holds either a CLOUDINARY_URL or the three discrete credentials.
type CloudinaryConfig struct {
	URL       string
	CloudName string
	APIKey    string
	APISecret string
	// Timeout bounds each upload; zero means no bound beyond the caller's context.
	Timeout time.Duration
}

type Cloudinary struct {
	api     uploadAPI
	timeout time.Duration
}

func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	switch {
	case cfg.URL != "":
		cld, err = cloudinary.NewFromURL(cfg.URL)
	case cfg.CloudName != "" && cfg.APIKey != "" && cfg.APISecret != "":
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	default:
		return nil, errors.New("cloudinary credentials are not configured")
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration error: %w", err)
	}

	return &Cloudinary{api: &cld.Upload, timeout: cfg.Timeout}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, data []byte, folder string, kind Kind) (*Asset, error) {
	if len(data) == 0 {
		return nil, &UploadError{Folder: folder, Cause: errors.New("empty file")}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := uploader.UploadParams{
		Folder:       folder,
		ResourceType: string(kind),
	}
	result, err := c.api.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return nil, &UploadError{Folder: folder, Cause: err}
	}
	// The SDK reports API-side failures in the result rather than as an error.
	if result == nil {
		return nil, &UploadError{Folder: folder, Cause: errors.New("empty response")}
	}
	if result.Error.Message != "" {
		return nil, &UploadError{Folder: folder, Cause: errors.New(result.Error.Message)}
	}
	if result.SecureURL == "" {
		return nil, &UploadError{Folder: folder, Cause: errors.New("response has no secure_url")}
	}

	return &Asset{
		URL:          result.SecureURL,
		PublicID:     result.PublicID,
		ResourceType: result.ResourceType,
	}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, asset Asset) error {
	if asset.PublicID == "" {
		return nil
	}
	resourceType := asset.ResourceType
	if resourceType == "" {
		resourceType = string(KindImage)
	}

	result, err := c.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     asset.PublicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", asset.PublicID, err)
	}
	if result != nil && result.Error.Message != "" {
		return fmt.Errorf("destroy %s: %s", asset.PublicID, result.Error.Message)
	}
	if result != nil && result.Result != "ok" {
		log.Printf("[media] destroy %s returned %q", asset.PublicID, result.Result)
	}
	return nil
}
