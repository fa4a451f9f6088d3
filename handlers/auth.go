package handlers

import (
	"net/http"

	"newgenmusic/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	svc      *auth.Service
	validate *validator.Validate
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc, validate: validator.New()}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "A valid email and password are required")
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, "Login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    res.Token,
		"_id":      res.User.ID.Hex(),
		"username": res.User.Username,
		"email":    res.User.Email,
		"role":     res.User.Role,
	})
}
