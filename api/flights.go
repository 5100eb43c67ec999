package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/service/flights"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup, admin ...gin.HandlerFunc) {
	router.GET("/flights/search", h.search)
	router.GET("/flights/:id", h.get)
	router.POST("/flights", append(admin, h.create)...)
}

type searchQuery struct {
	From       string `form:"from"`
	To         string `form:"to"`
	Date       string `form:"date"`
	Flexible   bool   `form:"flexible"`
	DirectOnly bool   `form:"directOnly"`
	Passengers int    `form:"passengers"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

func (h *FlightHandler) search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, domain.NewValidationError("query", err.Error()))
		return
	}

	page, err := h.service.Search(c.Request.Context(), flights.SearchInput{
		From:       q.From,
		To:         q.To,
		Date:       q.Date,
		Flexible:   q.Flexible,
		DirectOnly: q.DirectOnly,
		Passengers: q.Passengers,
		Page:       q.Page,
		Limit:      q.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, domain.NewValidationError("id", "must be an integer"))
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) create(c *gin.Context) {
	var req flights.CreateFlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}

	flight, err := h.service.CreateFlight(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "flight created", "flight": flight})
}
