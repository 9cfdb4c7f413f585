package routes

import (
	"net/http"

	"github.com/01moynul/bookshelf-admin/internal/handlers"
	"github.com/01moynul/bookshelf-admin/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries what the router needs besides the handlers.
type Options struct {
	AllowedOrigin string
	Tokens        middleware.TokenValidator
	Gatherer      prometheus.Gatherer // nil hides /metrics
}

// CORSMiddleware tells the browser that the admin UI at origin may call the API.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Allow only the configured frontend
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)

		// 2. Allow standard security credentials
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// 3. Allow the headers we actually use (specifically "Authorization" for JWT tokens)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		// 4. Allow the HTTP methods we use in our API
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// 5. Answer the preflight OPTIONS request with "204 No Content".
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.Default()

	// This must be the very first thing the router uses
	router.Use(CORSMiddleware(opts.AllowedOrigin))

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(opts.Tokens))
		{
			// --- Form Sessions ---
			auth.POST("/sessions", h.CreateSession)

			sessions := auth.Group("/sessions/:id")
			{
				sessions.GET("", h.GetSession)
				sessions.PATCH("", h.UpdateProduct)
				sessions.DELETE("", h.DeleteSession)

				sessions.PUT("/sku", h.SetParentSKU)
				sessions.POST("/sku/generate", h.GenerateSKU)
				sessions.PUT("/type", h.SetProductType)

				// --- Attribute Drafts ---
				sessions.POST("/attributes", h.AddAttribute)
				sessions.POST("/attributes/suggest", h.SuggestAttributes)
				sessions.PATCH("/attributes/:index", h.UpdateAttribute)
				sessions.DELETE("/attributes/:index", h.RemoveAttribute)
				sessions.POST("/expand", h.ExpandAttributes)

				// --- Variations ---
				sessions.POST("/variations", h.AddVariation)
				sessions.PATCH("/variations/:index", h.UpdateVariation)
				sessions.DELETE("/variations/:index", h.RemoveVariation)
				sessions.POST("/variations/:index/attributes", h.AddVariationAttribute)
				sessions.PATCH("/variations/:index/attributes", h.UpdateVariationAttribute)
				sessions.DELETE("/variations/:index/attributes/:key", h.RemoveVariationAttribute)
				sessions.POST("/variations/:index/image", h.UploadVariationImage)

				// --- Submit & Drafts ---
				sessions.POST("/check", h.CheckSession)
				sessions.POST("/submit", h.SubmitSession)
				sessions.POST("/draft", h.SaveDraft)
			}

			auth.POST("/drafts/:id/restore", h.RestoreDraft)
		}
	}

	return router
}
