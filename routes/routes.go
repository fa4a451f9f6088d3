package routes

import (
	"net/http"
	"strings"
	"time"

	"newgenmusic/handlers"
	"newgenmusic/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs to mount the API.
type Deps struct {
	Posts        *handlers.PostHandler
	Auth         *handlers.AuthHandler
	Push         *handlers.PushHandler
	Sitemap      gin.HandlerFunc
	Live         http.Handler
	Tokens       middleware.TokenParser
	LoginLimiter *middleware.IPRateLimiter
	CORSOrigins  []string
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(d.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = d.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "newgenmusic API is running",
			"time":    time.Now().Unix(),
		})
	}
	router.GET("/health", health)
	router.GET("/api/health", health)

	if d.Sitemap != nil {
		router.GET("/sitemap.xml", d.Sitemap)
	}

	api := router.Group("/api")

	// Public routes (no auth required)
	login := []gin.HandlerFunc{d.Auth.Login}
	if d.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{d.LoginLimiter.Middleware()}, login...)
	}
	api.POST("/auth/login", login...)

	api.GET("/posts", d.Posts.List)
	api.GET("/posts/categories", d.Posts.Categories)
	api.GET("/posts/tags", d.Posts.Tags)
	api.GET("/posts/:id", d.Posts.Get)

	if d.Push != nil {
		api.GET("/push/vapid-public-key", d.Push.VapidPublicKey)
		api.POST("/push/subscribe", d.Push.Subscribe)
	}
	if d.Live != nil {
		api.GET("/ws", gin.WrapH(d.Live))
	}

	// Admin routes
	admin := api.Group("")
	admin.Use(middleware.RequireAuth(d.Tokens), middleware.RequireAdmin())
	admin.POST("/posts", d.Posts.Create)
	admin.PUT("/posts/:id", d.Posts.Update)
	admin.DELETE("/posts/:id", d.Posts.Delete)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Endpoint not found: " + c.Request.URL.Path,
			})
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	return router
}
