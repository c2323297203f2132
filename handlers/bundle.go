// File: faredown/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Bargain endpoints.
	StartSession   gin.HandlerFunc
	GetSession     gin.HandlerFunc
	SubmitOffer    gin.HandlerFunc
	AcceptCounter  gin.HandlerFunc
	RejectCounter  gin.HandlerFunc
	CreateHold     gin.HandlerFunc
	AbandonSession gin.HandlerFunc

	// Settings endpoints.
	GetSettings gin.HandlerFunc
}
