package routes

import (
	"faredown/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterBargainRoutes registers all endpoints for the bargain engine.
func RegisterBargainRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bargain := r.Group("/api/bargain")
	{
		bargain.POST("/session", hb.StartSession)
		bargain.GET("/session/:sessionID", hb.GetSession)
		bargain.POST("/session/:sessionID/offer", hb.SubmitOffer)
		bargain.POST("/session/:sessionID/accept", hb.AcceptCounter)
		bargain.POST("/session/:sessionID/reject", hb.RejectCounter)
		bargain.POST("/session/:sessionID/hold", hb.CreateHold)
		bargain.DELETE("/session/:sessionID", hb.AbandonSession)

		bargain.GET("/settings/:module", hb.GetSettings)
	}
}
