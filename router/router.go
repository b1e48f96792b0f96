package router

import (
	"log"

	"venditto/config"
	"venditto/controllers"
	"venditto/middleware"

	"github.com/gin-gonic/gin"
)

// Initialize wires all routes and middlewares.
// Duas superfícies: webhook público (autenticado por segredo de instância) e
// API administrativa read-mostly (token estático).
func Initialize(r *gin.Engine, cfg config.Configuration) {
	// Método não suportado num path conhecido responde 405, não 404.
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	// Webhook (WhatsApp) - multi-tenant: /webhook/:instance
	// O segredo chega via header X-Webhook-Secret, ?secret= ou segmento de path.
	r.GET("/webhook/:instance", controllers.WebhookHealthcheck)
	r.POST("/webhook/:instance", Logger(), controllers.WebhookUpdate)
	r.GET("/webhook/:instance/:secret", controllers.WebhookHealthcheck)
	r.POST("/webhook/:instance/:secret", Logger(), controllers.WebhookUpdate)

	// Admin routes (token estático)
	admin := r.Group("/api")
	admin.Use(Adminizer(cfg.AdminToken))

	admin.GET("/cases", Logger(), controllers.GetCases)
	admin.GET("/cases/:id", Logger(), controllers.GetCaseByID)

	admin.GET("/jobs", Logger(), controllers.GetJobs)
	admin.POST("/jobs/run", Logger(), controllers.RunJobs)
	admin.POST("/jobs/requeue-failed", Logger(), controllers.RequeueFailedJobs)

	log.Printf("Routes initialized")
}
