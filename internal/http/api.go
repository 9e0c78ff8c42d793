package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/sirupsen/logrus"

	"account-service/internal/domain"
	"account-service/internal/repository"
	"account-service/internal/service"
	"account-service/internal/token"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	tokens *token.Service
	logger *logrus.Logger
}

func NewHandler(users service.UserService, tokens *token.Service, logger *logrus.Logger) *Handler {
	return &Handler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
		}

		users := api.Group("/users", h.requireAuth())
		{
			users.GET("/me", h.getProfile)
			users.PATCH("/update", h.updateProfile)
			users.PATCH("/deactivate", h.deactivate)
		}

		admin := api.Group("/admin", h.requireAuth(), h.requireRole(domain.RoleAdmin))
		{
			admin.GET("/users", h.listUsers)
		}

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 0)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
		validation.Field(&r.PhoneNumber, validation.Required, validation.Match(phonePattern)),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phoneNumber"`
}

func (r updateProfileRequest) Validate() error {
	// NilOrNotEmpty keeps absent fields optional while rejecting blank ones;
	// Length and Match alone would skip empty strings.
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 0)),
		validation.Field(&r.PhoneNumber, validation.NilOrNotEmpty, validation.Match(phonePattern)),
	)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		abortWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.PhoneNumber)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			abortWithMessage(c, http.StatusConflict, "email already registered")
			return
		}
		h.serverError(c, err)
		return
	}

	tokenString, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": tokenString,
		"user":  userToResponse(user),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		abortWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			abortWithMessage(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.serverError(c, err)
		return
	}

	tokenString, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
		"user":  userToResponse(user),
	})
}

func (h *Handler) getProfile(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), caller.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithMessage(c, http.StatusNotFound, "user not found")
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToResponse(user)})
}

func (h *Handler) updateProfile(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "authentication required")
		return
	}

	// Unknown keys are rejected outright so fields like email or role can
	// never ride along with a profile update.
	var req updateProfileRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&req)
	switch {
	case errors.Is(err, io.EOF):
		// empty body, no-op update
	case err != nil:
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	default:
		// exactly one JSON value allowed
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			abortWithMessage(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := req.Validate(); err != nil {
		abortWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), caller.UserID, repository.ProfileUpdate{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithMessage(c, http.StatusNotFound, "user not found")
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "profile updated",
		"user":    userToResponse(user),
	})
}

func (h *Handler) deactivate(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		abortWithMessage(c, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.users.Deactivate(c.Request.Context(), caller.UserID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithMessage(c, http.StatusNotFound, "user not found")
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account deactivated"})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{"users": resp})
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	abortWithMessage(c, http.StatusInternalServerError, "server error")
}

// UserResponse is the public view of an account. It never carries the
// password hash.
type UserResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Role:        string(user.Role),
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}
