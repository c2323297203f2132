package handlers

import (
	"net/http"

	settingsRepo "faredown/database/repository/settings"
	"faredown/models"
	"faredown/services/bargain"
	"faredown/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BargainHandler exposes the negotiation engine over HTTP.
type BargainHandler struct {
	Service  bargain.SessionService
	Settings settingsRepo.Repository
	Logger   *zap.Logger
}

func NewBargainHandler(svc bargain.SessionService, settings settingsRepo.Repository, logger *zap.Logger) *BargainHandler {
	return &BargainHandler{Service: svc, Settings: settings, Logger: logger}
}

// StartSession opens a new bargain session for an item.
func (h *BargainHandler) StartSession(c *gin.Context) {
	var input struct {
		Item models.ItemContext `json:"item"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, err := h.Service.InitiateSession(c.Request.Context(), input.Item)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": session.SessionID,
		"session":   session,
	})
}

// GetSession returns the current state of a session.
func (h *BargainHandler) GetSession(c *gin.Context) {
	session, err := h.Service.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// SubmitOffer evaluates one user offer against the session's bounds.
func (h *BargainHandler) SubmitOffer(c *gin.Context) {
	var input struct {
		OfferPrice float64 `json:"offerPrice"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, response, err := h.Service.EvaluateOffer(c.Request.Context(), c.Param("sessionID"), input.OfferPrice)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":  session,
		"response": response,
	})
}

// AcceptCounter accepts the standing counter-offer.
func (h *BargainHandler) AcceptCounter(c *gin.Context) {
	session, err := h.Service.AcceptCounterOffer(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":     session,
		"agreedPrice": session.AgreedPrice,
	})
}

// RejectCounter declines the standing counter-offer.
func (h *BargainHandler) RejectCounter(c *gin.Context) {
	session, err := h.Service.RejectCounterOffer(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// CreateHold reserves the agreed price after a successful negotiation.
func (h *BargainHandler) CreateHold(c *gin.Context) {
	hold, err := h.Service.CreateHold(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hold": hold})
}

// AbandonSession discards the session without booking.
func (h *BargainHandler) AbandonSession(c *gin.Context) {
	reason := c.Query("reason")
	if reason == "" {
		reason = "user_closed"
	}
	if err := h.Service.AbandonSession(c.Request.Context(), c.Param("sessionID"), reason); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}

// GetSettings returns the effective bargain settings for a module, with
// optional country/city market overrides applied.
func (h *BargainHandler) GetSettings(c *gin.Context) {
	settings, err := h.Settings.GetSettings(c.Request.Context(),
		c.Param("module"), c.Query("country"), c.Query("city"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "settings not found", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *BargainHandler) respondError(c *gin.Context, err error) {
	switch bargain.ErrorCode(err) {
	case bargain.CodeInvalidRequest, bargain.CodeInvalidOffer:
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
	case bargain.CodeSessionNotFound:
		utils.JSONError(c, http.StatusNotFound, "session not found", err.Error())
	case bargain.CodeStateViolation:
		utils.JSONError(c, http.StatusConflict, "invalid session state", err.Error())
	case bargain.CodeCounterOfferExpired:
		utils.JSONError(c, http.StatusGone, "counter-offer expired", err.Error())
	case bargain.CodePricingFetchFailed, bargain.CodeCounterProcessingError, bargain.CodePricingInconsistency:
		utils.JSONError(c, http.StatusBadGateway, "pricing unavailable", err.Error())
	default:
		h.Logger.Error("unhandled bargain error", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
