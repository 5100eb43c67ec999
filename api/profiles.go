package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/service/loyalty"
)

const apiKeyHeader = "X-API-Key"

type ProfileHandler struct {
	service loyalty.LoyaltyUseCase
}

type registerLoyaltyRequest struct {
	Email           string `json:"email"`
	WantsMembership bool   `json:"wantsMembership"`
}

type updateMilesRequest struct {
	Email      string `json:"email"`
	MilesToAdd int64  `json:"milesToAdd"`
}

func NewProfileHandler(service loyalty.LoyaltyUseCase) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) Register(router *gin.RouterGroup) {
	router.GET("/user/profile/:email", h.profile)
	router.POST("/user/register-loyalty", h.registerLoyalty)
	router.POST("/external/update-miles", h.updateMiles)
}

func (h *ProfileHandler) profile(c *gin.Context) {
	view, err := h.service.GetProfile(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ProfileHandler) registerLoyalty(c *gin.Context) {
	var req registerLoyaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}

	created, err := h.service.RegisterLoyalty(c.Request.Context(), req.Email, req.WantsMembership)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"created": created})
}

// updateMiles rejects a missing partner key before the body is read.
func (h *ProfileHandler) updateMiles(c *gin.Context) {
	key := c.GetHeader(apiKeyHeader)
	if key == "" {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	var req updateMilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}

	profile, err := h.service.CreditMiles(c.Request.Context(), req.Email, req.MilesToAdd, key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "miles updated", "milesBalance": profile.MilesBalance})
}
