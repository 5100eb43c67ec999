package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
	"github.com/Domenick1991/airline-ticketing/internal/service/loyalty"
)

func jsonContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestProfileHandler_profile(t *testing.T) {
	mockService := &MockLoyaltyUseCase{}
	handler := NewProfileHandler(mockService)
	c, w := jsonContext(http.MethodGet, "/api/v1/user/profile/a@b.co", "")
	c.Params = gin.Params{{Key: "email", Value: "a@b.co"}}

	mockService.On("GetProfile", mock.Anything, "a@b.co").Return(&loyalty.ProfileView{
		Email: "a@b.co", MembershipTier: domain.GuestMembershipTier, Bookings: []domain.BookingWithFlight{},
	}, nil)

	handler.profile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"membershipType":"Guest"`)
	assert.Contains(t, w.Body.String(), `"milesBalance":0`)
}

func TestProfileHandler_registerLoyalty(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		mockService := &MockLoyaltyUseCase{}
		handler := NewProfileHandler(mockService)
		c, w := jsonContext(http.MethodPost, "/api/v1/user/register-loyalty", `{"email":"a@b.co","wantsMembership":true}`)
		mockService.On("RegisterLoyalty", mock.Anything, "a@b.co", true).Return(true, nil)

		handler.registerLoyalty(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"created":true}`, w.Body.String())
	})

	t.Run("existing", func(t *testing.T) {
		mockService := &MockLoyaltyUseCase{}
		handler := NewProfileHandler(mockService)
		c, w := jsonContext(http.MethodPost, "/api/v1/user/register-loyalty", `{"email":"a@b.co","wantsMembership":true}`)
		mockService.On("RegisterLoyalty", mock.Anything, "a@b.co", true).Return(false, nil)

		handler.registerLoyalty(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"created":false}`, w.Body.String())
	})
}

func TestProfileHandler_updateMiles(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		mockService := &MockLoyaltyUseCase{}
		handler := NewProfileHandler(mockService)
		c, w := jsonContext(http.MethodPost, "/api/v1/external/update-miles", `{"email":"a@b.co","milesToAdd":10}`)

		handler.updateMiles(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockService.AssertNotCalled(t, "CreditMiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("wrong key", func(t *testing.T) {
		mockService := &MockLoyaltyUseCase{}
		handler := NewProfileHandler(mockService)
		c, w := jsonContext(http.MethodPost, "/api/v1/external/update-miles", `{"email":"a@b.co","milesToAdd":10}`)
		c.Request.Header.Set(apiKeyHeader, "guess")
		mockService.On("CreditMiles", mock.Anything, "a@b.co", int64(10), "guess").Return(nil, domain.ErrUnauthorized)

		handler.updateMiles(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown member", func(t *testing.T) {
		mockService := &MockLoyaltyUseCase{}
		handler := NewProfileHandler(mockService)
		c, w := jsonContext(http.MethodPost, "/api/v1/external/update-miles", `{"email":"x@b.co","milesToAdd":10}`)
		c.Request.Header.Set(apiKeyHeader, "secret")
		mockService.On("CreditMiles", mock.Anything, "x@b.co", int64(10), "secret").Return(nil, domain.ErrNotFound)

		handler.updateMiles(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("credited", func(t *testing.T) {
		mockService := &MockLoyaltyUseCase{}
		handler := NewProfileHandler(mockService)
		c, w := jsonContext(http.MethodPost, "/api/v1/external/update-miles", `{"email":"a@b.co","milesToAdd":10}`)
		c.Request.Header.Set(apiKeyHeader, "secret")
		mockService.On("CreditMiles", mock.Anything, "a@b.co", int64(10), "secret").
			Return(&domain.UserProfile{Email: "a@b.co", MilesBalance: 110}, nil)

		handler.updateMiles(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"milesBalance":110`)
	})
}
