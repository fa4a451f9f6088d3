package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"newgenmusic/models"
	"newgenmusic/posts"
	"newgenmusic/storage"

	"github.com/SherClockHolmes/webpush-go"
)

type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	// SiteURL prefixes the link opened when a notification is clicked.
	SiteURL string
	Timeout time.Duration
}

type sendFunc func(ctx context.Context, message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

// WebPush announces newly published posts to every stored browser subscription.
type WebPush struct {
	subs    storage.SubscriptionRepository
	cfg     WebPushConfig
	send    sendFunc
	pending sync.WaitGroup
}

func NewWebPush(subs storage.SubscriptionRepository, cfg WebPushConfig) *WebPush {
	if cfg.Subject == "" {
		cfg.Subject = "mailto:admin@newgenmusic.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &WebPush{subs: subs, cfg: cfg, send: webpush.SendNotificationWithContext}
}

func (w *WebPush) Enabled() bool {
	return w != nil && w.cfg.PublicKey != "" && w.cfg.PrivateKey != ""
}

func (w *WebPush) PublicKey() string {
	if w == nil {
		return ""
	}
	return w.cfg.PublicKey
}

// Subscribe stores a browser subscription, replacing any previous keys for the endpoint.
func (w *WebPush) Subscribe(ctx context.Context, endpoint, p256dh, auth string) (*models.PushSubscription, error) {
	sub := &models.PushSubscription{Endpoint: endpoint, P256dh: p256dh, Auth: auth}
	if err := w.subs.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return sub, nil
}

// PostChanged sends in the background; only newly created posts are announced.
func (w *WebPush) PostChanged(_ context.Context, event posts.Event) {
	if !w.Enabled() || event.Type != posts.EventCreated || event.Post == nil {
		return
	}
	payload, err := w.payload(event.Post)
	if err != nil {
		log.Printf("Failed to marshal push payload: %v", err)
		return
	}

	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in push notification: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
		defer cancel()
		if _, err := w.Broadcast(ctx, payload); err != nil {
			log.Printf("Push broadcast for post %s finished with errors: %v", event.Post.ID.Hex(), err)
		}
	}()
}

// Wait blocks until background sends started by PostChanged have finished.
func (w *WebPush) Wait() {
	w.pending.Wait()
}

// Broadcast sends payload to every subscription and returns how many were delivered.
// Subscriptions the push service reports as gone are removed.
func (w *WebPush) Broadcast(ctx context.Context, payload []byte) (int, error) {
	subs, err := w.subs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	opts := &webpush.Options{
		Subscriber:      w.cfg.Subject,
		VAPIDPublicKey:  w.cfg.PublicKey,
		VAPIDPrivateKey: w.cfg.PrivateKey,
		TTL:             3600,
	}

	var (
		sent int
		errs []error
	)
	for _, s := range subs {
		sub := &webpush.Subscription{
			Endpoint: s.Endpoint,
			Keys:     webpush.Keys{P256dh: s.P256dh, Auth: s.Auth},
		}
		resp, err := w.send(ctx, payload, sub, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Endpoint, err))
			continue
		}
		status := resp.StatusCode
		resp.Body.Close()

		switch {
		case status == http.StatusNotFound || status == http.StatusGone:
			log.Printf("Push subscription expired, deleting %s", s.Endpoint)
			if err := w.subs.DeleteByEndpoint(ctx, s.Endpoint); err != nil && !errors.Is(err, storage.ErrNotFound) {
				errs = append(errs, fmt.Errorf("delete %s: %w", s.Endpoint, err))
			}
		case status >= 200 && status < 300:
			sent++
		default:
			errs = append(errs, fmt.Errorf("%s: push service returned %d", s.Endpoint, status))
		}
	}
	return sent, errors.Join(errs...)
}

func (w *WebPush) payload(p *models.Post) ([]byte, error) {
	body := p.Content
	if utf8.RuneCountInString(body) > 100 {
		body = string([]rune(body)[:100]) + "..."
	}
	return json.Marshal(map[string]interface{}{
		"title": "New post: " + p.Title,
		"body":  body,
		"icon":  p.FeaturedImage,
		"data": map[string]interface{}{
			"url":       w.cfg.SiteURL + "/posts/" + p.ID.Hex(),
			"postId":    p.ID.Hex(),
			"timestamp": time.Now().Unix(),
		},
	})
}
