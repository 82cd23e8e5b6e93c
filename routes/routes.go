package routes

import (
	"net/http"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/middleware"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/controllers"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the shop catalog publicly and the import pipeline and
// admin catalog behind admin auth.
func RegisterRoutes(r *gin.Engine, imports *controllers.ImportController, catalog *controllers.CatalogController, jwtSecret []byte) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	shop := r.Group("/products")
	{
		shop.GET("", catalog.ListShopProducts)
		shop.GET("/:id", catalog.GetShopProduct)
	}

	admin := r.Group("/admin", middleware.AdminAuth(jwtSecret))
	{
		admin.GET("/products", catalog.ListAdminProducts)

		jobs := admin.Group("/imports")
		jobs.GET("/template", imports.Template)
		jobs.POST("", middleware.RateLimitMiddleware(30, 5), imports.CreateImport)
		jobs.GET("", imports.ListImports)
		jobs.GET("/:id", imports.GetImport)
		jobs.GET("/:id/result", imports.GetImportResult)
		jobs.GET("/:id/events", imports.StreamImport)
		jobs.POST("/:id/pause", imports.PauseImport)
		jobs.POST("/:id/resume", imports.ResumeImport)
		jobs.POST("/:id/cancel", imports.CancelImport)
	}
}
