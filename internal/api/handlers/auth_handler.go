package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fslarfn/toto-backend-sub000/internal/api/response"
	"github.com/fslarfn/toto-backend-sub000/internal/apperrors"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
)

// AuthHandler handles login and account management
type AuthHandler struct {
	service *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// LoginRequest is the login body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest is the body of POST /admin/users
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

// RegisterRoutes registers the public routes
func (h *AuthHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/auth/login", h.Login)
}

// RegisterAdminRoutes registers the routes reserved for admins
func (h *AuthHandler) RegisterAdminRoutes(router gin.IRouter) {
	router.POST("/users", h.CreateUser)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.InvalidRequest("username and password are required"))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
		"user":    result.User,
	})
}

// CreateUser handles POST /admin/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.InvalidRequest("invalid request body: %v", err))
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), services.NewUser{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Phone:    req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, user)
}
