package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"newgenmusic/auth"
	"newgenmusic/config"
	"newgenmusic/handlers"
	"newgenmusic/media"
	"newgenmusic/middleware"
	"newgenmusic/notify"
	"newgenmusic/posts"
	"newgenmusic/routes"
	"newgenmusic/storage/backend"
	"newgenmusic/websocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func main() {
	log.Println("🚀 Starting newgenmusic backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Invalid configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Invalid configuration: ", err)
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
		log.Println("⚙️ Running in RELEASE mode")
	} else {
		gin.SetMode(gin.DebugMode)
		log.Println("⚙️ Running in DEBUG mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== STORAGE =====
	repos, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal("❌ ", err)
	}
	log.Printf("✅ Storage ready (%s)", cfg.Storage)

	// ===== MEDIA =====
	var store media.Store
	if cfg.CloudinaryConfigured() {
		cld, err := media.NewCloudinary(media.CloudinaryConfig{
			URL:       cfg.CloudinaryURL,
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Timeout:   cfg.MediaUploadTimeout,
		})
		if err != nil {
			log.Fatal("❌ ", err)
		}
		store = cld
	} else {
		log.Println("⚠️ Cloudinary not configured, uploads stay in memory")
		store = media.NewFake()
	}

	// ===== NOTIFICATIONS =====
	hub := websocket.NewHub(cfg.CORSOrigins)
	go hub.Run(ctx)

	push := notify.NewWebPush(repos.Subscriptions, notify.WebPushConfig{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
		SiteURL:    cfg.SiteURL,
	})
	if !push.Enabled() {
		log.Println("⚠️ VAPID keys not set, web push disabled (run `newgenctl vapid-keys`)")
	}

	// ===== SERVICES =====
	postSvc := posts.NewService(repos.Posts, repos.Users, store,
		posts.WithNotifier(notify.Fanout{hub, push}),
		posts.WithFolders(posts.DefaultFolders(cfg.MediaFolderRoot)))

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Println("⚠️ JWT_SECRET not set, using a random secret; tokens end with the process")
	}
	authSvc := auth.NewService(repos.Users, secret, cfg.JWTTTL)

	limiter := middleware.NewIPRateLimiter(cfg.LoginRateLimit, time.Minute)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	// ===== ROUTER =====
	router := routes.SetupRouter(routes.Deps{
		Posts:        handlers.NewPostHandler(postSvc, cfg.MaxUploadBytes()),
		Auth:         handlers.NewAuthHandler(authSvc),
		Push:         handlers.NewPushHandler(push),
		Sitemap:      handlers.Sitemap(postSvc, cfg.SiteURL),
		Live:         hub,
		Tokens:       authSvc,
		LoginLimiter: limiter,
		CORSOrigins:  cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 2 * time.Minute,
		// uploads to the media host happen inside the request
		WriteTimeout: 2*cfg.MediaUploadTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error: ", err)
		}
	}()

	log.Println("✅ Server is ready and accepting connections")

	// ===== GRACEFUL SHUTDOWN =====
	<-ctx.Done()
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("❌ Forced shutdown:", err)
	}
	push.Wait()
	if err := repos.Close(shutdownCtx); err != nil {
		log.Println("❌ Closing storage:", err)
	}

	log.Println("👋 Server stopped gracefully")
}
