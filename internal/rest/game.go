package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"restoPlay/domain"
	"restoPlay/pkg/logger"
	"restoPlay/pkg/metrics"
	jsonres "restoPlay/pkg/response"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	RegistrationService interface {
		Register(ctx context.Context, ident domain.Identity, tenant *domain.Tenant) (domain.RegistrationResult, error)
	}

	SessionService interface {
		MarkPlayed(ctx context.Context, token string, tenant *domain.Tenant) (domain.PlayResult, error)
		SetRating(ctx context.Context, token string, rating float64, tenant *domain.Tenant) (domain.RatingResult, error)
		Status(ctx context.Context, token string, tenant *domain.Tenant) (domain.Participant, error)
	}

	TenantCatalog interface {
		Resolve(name string) (domain.Tenant, error)
		ResolvePartition(partition string) (domain.Tenant, error)
		List() []domain.Tenant
	}

	GameHandler struct {
		registration RegistrationService
		session      SessionService
		catalog      TenantCatalog
		validator    *validator.Validate
		timeout      time.Duration
	}

	RegisterRequest struct {
		Name           string `json:"name" validate:"required"`
		Email          string `json:"email" validate:"omitempty,email"`
		Phone          string `json:"phone" validate:"required"`
		RestaurantName string `json:"restaurantName"`
	}

	GamePlayedRequest struct {
		Token          string `json:"token" validate:"required"`
		TableName      string `json:"tableName"`
		RestaurantName string `json:"restaurantName"`
	}

	FeedbackRequest struct {
		Token          string          `json:"token" validate:"required"`
		Rating         json.RawMessage `json:"rating"`
		TableName      string          `json:"tableName"`
		RestaurantName string          `json:"restaurantName"`
	}

	TokenStatus struct {
		Token      string     `json:"token"`
		GamePlayed bool       `json:"gamePlayed"`
		PlayedOn   *time.Time `json:"playedOn"`
		Rating     *int       `json:"rating"`
	}
)

// NewGameHandler builds the game endpoints. A nil catalog means single-tenant mode.
func NewGameHandler(registration RegistrationService, session SessionService, catalog TenantCatalog, timeout time.Duration) *GameHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GameHandler{
		registration: registration,
		session:      session,
		catalog:      catalog,
		validator:    validator.New(),
		timeout:      timeout,
	}
}

func (h *GameHandler) Register(c echo.Context) error {
	defer observe("register", time.Now())

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, jsonres.Error("BAD_REQUEST", err.Error(), nil))
	}

	restaurant := c.QueryParam("restaurantName")
	if restaurant == "" {
		restaurant = req.RestaurantName
	}

	// the restaurant is checked before the identity fields
	var tenant *domain.Tenant
	if h.catalog != nil {
		t, err := h.catalog.Resolve(restaurant)
		if err != nil {
			metrics.Registrations.WithLabelValues("unknown", "error").Inc()
			return writeError(c, err)
		}
		tenant = &t
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate registration", "error", err)
		return c.JSON(http.StatusBadRequest, jsonres.Error("INVALID_IDENTITY", err.Error(), nil))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.registration.Register(ctx, domain.Identity{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}, tenant)
	if err != nil {
		logger.Error("Failed to register user", "error", err)
		metrics.Registrations.WithLabelValues(tableLabel(tenant), "error").Inc()
		return writeError(c, err)
	}

	metrics.Registrations.WithLabelValues(tableLabel(tenant), string(res.Status)).Inc()

	body := map[string]interface{}{
		"token": res.Token,
	}
	if res.Reward != nil {
		body["offers"] = res.Reward.Offers
		body["tableName"] = res.Reward.Partition
		body["winProbability"] = res.Reward.WinProbability
	}

	if res.Status == domain.StatusAlreadyRegistered {
		body["message"] = "User already registered!"
		body["latestPlayedTimestamp"] = res.LastPlayedAt
		return c.JSON(http.StatusOK, body)
	}

	body["message"] = "User registered successfully!"
	return c.JSON(http.StatusCreated, body)
}

func (h *GameHandler) GamePlayed(c echo.Context) error {
	defer observe("game_played", time.Now())

	var req GamePlayedRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, jsonres.Error("BAD_REQUEST", err.Error(), nil))
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate game played request", "error", err)
		return c.JSON(http.StatusBadRequest, jsonres.Error("BAD_REQUEST", err.Error(), nil))
	}

	tenant, err := h.tenantFor(req.TableName, req.RestaurantName)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.session.MarkPlayed(ctx, req.Token, tenant)
	if err != nil {
		logger.Error("Failed to mark game as played", "error", err)
		metrics.GamesPlayed.WithLabelValues(tableLabel(tenant), "error").Inc()
		return writeError(c, err)
	}

	metrics.GamesPlayed.WithLabelValues(tableLabel(tenant), "played").Inc()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Game marked as played!",
		"token":        res.Token,
		"playedOn":     res.PlayedAt,
		"acknowledged": true,
	})
}

func (h *GameHandler) Feedback(c echo.Context) error {
	defer observe("feedback", time.Now())

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, jsonres.Error("BAD_REQUEST", err.Error(), nil))
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate feedback request", "error", err)
		return c.JSON(http.StatusBadRequest, jsonres.Error("BAD_REQUEST", err.Error(), nil))
	}

	rating, err := parseRating(req.Rating)
	if err != nil {
		logger.Error("Invalid rating", "rating", string(req.Rating))
		return writeError(c, err)
	}

	tenant, err := h.tenantFor(req.TableName, req.RestaurantName)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.session.SetRating(ctx, req.Token, rating, tenant)
	if err != nil {
		logger.Error("Failed to set rating", "error", err)
		return writeError(c, err)
	}

	metrics.Ratings.WithLabelValues(tableLabel(tenant), strconv.Itoa(res.Rating)).Inc()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Rating updated successfully!",
		"rating":       res.Rating,
		"acknowledged": true,
	})
}

func (h *GameHandler) ValidateToken(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, jsonres.Error("BAD_REQUEST", "missing token", nil))
	}

	tenant, err := h.tenantFor(c.QueryParam("tableName"), c.QueryParam("restaurantName"))
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	p, err := h.session.Status(ctx, token, tenant)
	if err != nil {
		logger.Error("Failed to validate token", "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(TokenStatus{
		Token:      p.Token,
		GamePlayed: p.GamePlayed,
		PlayedOn:   p.PlayedOn,
		Rating:     p.Rating,
	}))
}

func (h *GameHandler) Restaurants(c echo.Context) error {
	tenants := []domain.Tenant{}
	if h.catalog != nil {
		tenants = h.catalog.List()
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(tenants))
}

// tenantFor resolves the tenant of a token action. Nothing supplied yields nil so the
// session service can report the missing table name.
func (h *GameHandler) tenantFor(tableName, restaurantName string) (*domain.Tenant, error) {
	if h.catalog == nil {
		return nil, nil
	}

	var (
		t   domain.Tenant
		err error
	)
	switch {
	case tableName != "":
		t, err = h.catalog.ResolvePartition(tableName)
	case restaurantName != "":
		t, err = h.catalog.Resolve(restaurantName)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// parseRating accepts only a JSON number. Strings, null and a missing field are
// reported as an invalid rating.
func parseRating(raw json.RawMessage) (float64, error) {
	var rating *float64
	if len(raw) == 0 || json.Unmarshal(raw, &rating) != nil || rating == nil {
		return 0, domain.ErrInvalidRating
	}

	return *rating, nil
}

func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTenant):
		return c.JSON(http.StatusBadRequest, jsonres.Error("INVALID_TENANT", domain.ErrInvalidTenant.Error(), nil))
	case errors.Is(err, domain.ErrMissingTenant):
		return c.JSON(http.StatusBadRequest, jsonres.Error("MISSING_TENANT", domain.ErrMissingTenant.Error(), nil))
	case errors.Is(err, domain.ErrInvalidRating):
		return c.JSON(http.StatusBadRequest, jsonres.Error("INVALID_RATING", domain.ErrInvalidRating.Error(), nil))
	case errors.Is(err, domain.ErrInvalidIdentity):
		return c.JSON(http.StatusBadRequest, jsonres.Error("INVALID_IDENTITY", err.Error(), nil))
	case errors.Is(err, domain.ErrUnknownToken):
		return c.JSON(http.StatusNotFound, jsonres.Error("UNKNOWN_TOKEN", domain.ErrUnknownToken.Error(), nil))
	case errors.Is(err, domain.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, jsonres.Error("STORE_UNAVAILABLE", domain.ErrStoreUnavailable.Error(), nil))
	case errors.Is(err, domain.ErrStoreWriteFailed) && errors.Is(err, domain.ErrDuplicateRecord):
		return c.JSON(http.StatusConflict, jsonres.Error("STORE_WRITE_FAILED", "registration conflicted with a concurrent request, retry", nil))
	case errors.Is(err, domain.ErrStoreWriteFailed):
		return c.JSON(http.StatusInternalServerError, jsonres.Error("STORE_WRITE_FAILED", domain.ErrStoreWriteFailed.Error(), nil))
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, jsonres.Error("TIMEOUT", "request timed out", nil))
	}

	return c.JSON(http.StatusInternalServerError, jsonres.Error("INTERNAL_ERROR", "internal server error", nil))
}

func tableLabel(tenant *domain.Tenant) string {
	if tenant == nil {
		return "default"
	}

	return tenant.Partition
}

func observe(handler string, start time.Time) {
	metrics.RequestLatency.WithLabelValues(handler).Observe(time.Since(start).Seconds())
}
