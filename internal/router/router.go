package router

import (
	"net/http"
	"strings"
	"time"

	"socialfeed/internal/config"
	"socialfeed/internal/handlers"
	"socialfeed/internal/middleware"
	"socialfeed/internal/monitoring"
	"socialfeed/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// uploadFormOverhead is allowed on top of the image size for the other
// multipart fields of a post.
const uploadFormOverhead int64 = 1 << 20

type Options struct {
	Config  config.Config
	Handler *handlers.Handler
	Tokens  *utils.TokenIssuer
	// Limiter guards register and login; nil disables rate limiting.
	Limiter middleware.Limiter
	// UploadsDir is served at Config.Upload.URLPrefix.
	UploadsDir string
}

func New(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(monitoring.RequestMetricsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(corsConfig(opts.Config.CORS.AllowedOrigins)))

	h := opts.Handler
	tokens := opts.Tokens
	jsonLimit := middleware.BodyLimitMiddleware(0)
	uploadLimit := middleware.BodyLimitMiddleware(opts.Config.Upload.MaxSizeBytes + uploadFormOverhead)
	authLimit := middleware.RateLimitMiddleware(opts.Limiter)

	router.GET("/health", h.Health)
	router.Static(uploadsPrefix(opts.Config.Upload.URLPrefix), opts.UploadsDir)

	api := router.Group("/api")
	api.GET("/status", handlers.Status)

	users := api.Group("/users")
	{
		users.POST("/register", authLimit, jsonLimit, h.Register)
		users.POST("/login", authLimit, jsonLimit, h.Login)
		users.GET("/search", h.SearchUsers)
		users.GET("/:id", h.GetUser)
	}

	posts := api.Group("/posts")
	{
		posts.POST("/add", uploadLimit, middleware.OptionalAuth(tokens), h.CreatePost)
		posts.GET("/all", middleware.OptionalAuth(tokens), h.GetPosts)
		posts.GET("/me", middleware.AuthMiddleware(tokens), h.GetMyPosts)
		posts.GET("/user/:userId", middleware.OptionalAuth(tokens), h.GetPostsByUserID)
	}

	comments := api.Group("/comments")
	{
		comments.POST("/addComment", jsonLimit, h.AddComment)
		comments.GET("/getComments", h.GetComments)
	}

	likes := api.Group("/likes")
	{
		likes.POST("/addLike", jsonLimit, h.AddLike)
		likes.POST("/unlike", jsonLimit, h.Unlike)
		likes.GET("/getLikes", h.GetLikes)
	}

	follow := api.Group("/follow")
	{
		follow.POST("/follow", jsonLimit, h.Follow)
		follow.POST("/unfollow", jsonLimit, h.Unfollow)
		follow.GET("/followers", h.GetFollowers)
		follow.GET("/following", h.GetFollowing)
	}

	monitor := api.Group("/monitor", h.MonitoringGuard())
	{
		monitor.GET("/help", h.MonitorHelp)
		monitor.GET("/status", h.MonitorStatus)
		monitor.GET("/storage", h.MonitorStorage)
		monitor.GET("/connections", h.MonitorConnections)
		monitor.GET("/runtime", h.MonitorRuntime)
		monitor.GET("/users", h.MonitorUsers)
		monitor.GET("/all", h.MonitorAll)
		monitor.GET("/snapshot", h.MonitorSnapshot)
		monitor.GET("/users-list", h.MonitorUsersList)
		monitor.GET("/files", h.MonitorFilesList)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	explicit := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
		if origin != "" {
			explicit = append(explicit, origin)
		}
	}
	if len(explicit) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = explicit
	cfg.AllowCredentials = true
	return cfg
}

func uploadsPrefix(raw string) string {
	prefix := "/" + strings.Trim(strings.TrimSpace(raw), "/")
	if prefix == "/" {
		return "/uploads"
	}
	return prefix
}
