package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"restomap.app/config"
	apperrors "restomap.app/errors"
	"restomap.app/models"
	"restomap.app/pkg/validation"
	"restomap.app/providers"
	"restomap.app/service"
)

var registerValidationsOnce sync.Once

// registerValidations installs the station_id rule on gin's binding engine
func registerValidations() {
	registerValidationsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("station_id", func(fl validator.FieldLevel) bool {
				return validation.IsValidStationID(fl.Field().String())
			})
		}
	})
}

// Server represents the HTTP server and API handler
type Server struct {
	router            *gin.Engine
	config            *config.Config
	verifier          service.CoordinateVerifier
	historyService    service.HistoryServiceInterface
	tokenService      service.TokenServiceInterface
	favoriteService   service.FavoriteServiceInterface
	restaurantService service.RestaurantServiceInterface
}

// NewServer creates and configures a new HTTP server
func NewServer(
	config *config.Config,
	verifier service.CoordinateVerifier,
	historyService service.HistoryServiceInterface,
	tokenService service.TokenServiceInterface,
	favoriteService service.FavoriteServiceInterface,
	restaurantService service.RestaurantServiceInterface,
) *Server {
	registerValidations()
	router := gin.Default()

	server := &Server{
		router:            router,
		config:            config,
		verifier:          verifier,
		historyService:    historyService,
		tokenService:      tokenService,
		favoriteService:   favoriteService,
		restaurantService: restaurantService,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/midpoint/validate", s.validateMidpoint)
		api.GET("/restaurants", s.listRestaurants)

		authed := api.Group("", AuthRequired())
		{
			authed.POST("/search_histories", s.createSearchHistory)
			authed.POST("/favorite_tokens/batch", s.issueFavoriteTokens)
			authed.POST("/favorite_tokens/decode", s.decodeFavoriteToken)
			authed.POST("/favorites", s.addFavorite)
			authed.POST("/favorites/by_search_history", s.addFavoriteBySearchHistory)
			authed.DELETE("/favorites/:id", s.removeFavorite)
			authed.GET("/favorites", s.listFavorites)
			authed.GET("/favorites/status", s.favoriteStatus)
		}
	}
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) validateMidpoint(c *gin.Context) {
	var req models.MidpointValidateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		slog.Error("Midpoint validate binding error", "error", err)
		s.handleError(c, apperrors.NewInvalidSignatureError("missing or malformed coordinate parameters"))
		return
	}
	if req.Signature == "" {
		s.handleError(c, apperrors.NewInvalidSignatureError("signature parameter is required"))
		return
	}

	valid := s.verifier.VerifyCoordinates(req.Latitude, req.Longitude, req.ExpiresAt, req.Signature)
	slog.Debug("Midpoint validation result",
		"valid", valid, "latitude", req.Latitude, "longitude", req.Longitude)
	c.JSON(http.StatusOK, models.MidpointValidateResponse{Valid: valid})
}

func (s *Server) createSearchHistory(c *gin.Context) {
	var req models.SearchHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("Search history binding error", "error", err)
		s.handleError(c, apperrors.NewValidationError("invalid request format"))
		return
	}

	history, err := s.historyService.Create(req.StationIDs)
	if err != nil {
		slog.Error("Search history error", "error", err, "stations", len(req.StationIDs))
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SearchHistoryResponse{ID: history.ID})
}

func (s *Server) issueFavoriteTokens(c *gin.Context) {
	var req models.TokenBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("Token batch binding error", "error", err)
		s.handleError(c, apperrors.NewValidationError("invalid request format"))
		return
	}

	tokens, err := s.tokenService.IssueBatch(&req)
	if err != nil {
		slog.Error("Token issuance error",
			"error", err, "historyId", req.SearchHistoryID, "restaurants", len(req.RestaurantIDs))
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TokenBatchResponse{Tokens: tokens})
}

func (s *Server) decodeFavoriteToken(c *gin.Context) {
	var req models.TokenDecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, apperrors.NewValidationError("invalid request format"))
		return
	}

	decoded, err := s.tokenService.Decode(req.Token)
	if err != nil {
		slog.Error("Token decode error", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, decoded)
}

func (s *Server) addFavorite(c *gin.Context) {
	var req models.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, apperrors.NewValidationError("invalid request format"))
		return
	}
	if req.Favorite.FavoriteToken == "" {
		s.handleError(c, apperrors.NewValidationError("favorite_token is required"))
		return
	}

	resp, err := s.favoriteService.AddByToken(req.Favorite.FavoriteToken, req.Favorite.HotpepperID)
	if err != nil {
		slog.Error("Add favorite error", "error", err, "hotpepperId", req.Favorite.HotpepperID)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) addFavoriteBySearchHistory(c *gin.Context) {
	var req models.FavoriteBySearchHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, apperrors.NewValidationError("invalid request format"))
		return
	}

	resp, err := s.favoriteService.AddBySearchHistory(req.SearchHistoryID, req.HotpepperID)
	if err != nil {
		slog.Error("Add favorite by history error",
			"error", err, "historyId", req.SearchHistoryID, "hotpepperId", req.HotpepperID)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) removeFavorite(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		s.handleError(c, apperrors.NewValidationError("favorite id must be a number"))
		return
	}

	if err := s.favoriteService.Remove(uint(id)); err != nil {
		slog.Error("Remove favorite error", "error", err, "favoriteId", id)
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) listFavorites(c *gin.Context) {
	historyID, err := strconv.ParseUint(c.Query("search_history_id"), 10, 64)
	if err != nil {
		s.handleError(c, apperrors.NewValidationError("search_history_id must be a number"))
		return
	}

	favorites, err := s.favoriteService.List(uint(historyID))
	if err != nil {
		slog.Error("List favorites error", "error", err, "historyId", historyID)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.FavoriteListResponse{Favorites: favorites})
}

func (s *Server) favoriteStatus(c *gin.Context) {
	historyID, err := strconv.ParseUint(c.Query("search_history_id"), 10, 64)
	if err != nil {
		s.handleError(c, apperrors.NewValidationError("search_history_id must be a number"))
		return
	}
	hotpepperID := c.Query("hotpepper_id")
	if hotpepperID == "" {
		s.handleError(c, apperrors.NewValidationError("hotpepper_id parameter is required"))
		return
	}

	status, err := s.favoriteService.Status(uint(historyID), hotpepperID)
	if err != nil {
		slog.Error("Favorite status error", "error", err, "historyId", historyID)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) listRestaurants(c *gin.Context) {
	rawIDs := c.Query("ids")
	if rawIDs == "" {
		s.handleError(c, apperrors.NewValidationError("ids parameter is required"))
		return
	}
	ids := strings.Split(rawIDs, ",")

	var opts providers.FetchOptions
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			s.handleError(c, apperrors.NewValidationError("offset must be a non-negative number"))
			return
		}
		opts.Offset = offset
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.handleError(c, apperrors.NewValidationError("limit must be a non-negative number"))
			return
		}
		opts.Limit = limit
	}

	items, err := s.restaurantService.Fetch(c.Request.Context(), ids, opts)
	if err != nil {
		slog.Error("Restaurant fetch error", "error", err, "ids", len(ids))
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RestaurantListResponse{Restaurants: items})
}

// handleError handles different types of application errors
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case apperrors.UnauthorizedError:
			statusCode = http.StatusUnauthorized
			message = apperrors.UserMessage(appErr.Type)
		case apperrors.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case apperrors.ExpiredError:
			statusCode = http.StatusBadRequest
			message = apperrors.UserMessage(appErr.Type)
		case apperrors.InvalidSignatureError:
			statusCode = http.StatusBadRequest
			message = apperrors.UserMessage(appErr.Type)
		case apperrors.RateLimitError:
			statusCode = http.StatusTooManyRequests
			message = apperrors.UserMessage(appErr.Type)
		case apperrors.ServerError:
			statusCode = http.StatusServiceUnavailable
			message = apperrors.UserMessage(appErr.Type)
		case apperrors.NetworkError:
			statusCode = http.StatusBadGateway
			message = apperrors.UserMessage(appErr.Type)
		case apperrors.DatabaseError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
