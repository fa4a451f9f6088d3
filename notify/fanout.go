package notify

import (
	"context"
	"log"

	"newgenmusic/posts"
)

// Fanout delivers every event to each notifier in order. A panicking notifier
// is logged and skipped so the others still run.
type Fanout []posts.Notifier

func (f Fanout) PostChanged(ctx context.Context, event posts.Event) {
	for _, n := range f {
		if n == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Panic in post notifier: %v", r)
				}
			}()
			n.PostChanged(ctx, event)
		}()
	}
}
