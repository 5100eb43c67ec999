package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type purchaseRequest struct {
	Email      string `json:"email"`
	UseMiles   bool   `json:"useMiles"`
	Passengers *int   `json:"passengers"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/flights/book/:id", h.purchase)
}

func (h *BookingHandler) purchase(c *gin.Context) {
	flightID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, domain.NewValidationError("id", "must be an integer"))
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}
	if req.Email == "" {
		if email, err := CallerEmail(c); err == nil {
			req.Email = email
		}
	}
	passengers := 1
	if req.Passengers != nil {
		passengers = *req.Passengers
	}

	created, err := h.service.Purchase(c.Request.Context(), booking.PurchaseInput{
		FlightID:   flightID,
		Email:      req.Email,
		Passengers: passengers,
		UseMiles:   req.UseMiles,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "booking confirmed", "booking": created})
}
