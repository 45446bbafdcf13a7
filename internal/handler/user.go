package handler

import (
	"errors"
	"log"
	"net/http"

	"shopsystem/internal/service"
	"shopsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=55"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName" binding:"required,max=30"`
	LastName  string `json:"lastName" binding:"required,max=30"`
	Gender    string `json:"gender" binding:"required,oneof=male female other"`
	Role      string `json:"role" binding:"omitempty,oneof=buyer admin"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	_, err := h.authService.Register(c.Request.Context(), &service.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Role:      req.Role,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Message(c, http.StatusConflict, "Email already exists.")
			return
		}
		log.Printf("[Handler] register failed: email=%s, err=%v", req.Email, err)
		response.ServerError(c, "Registration failed.", nil)
		return
	}

	response.Message(c, http.StatusCreated, "User is registered successfully.")
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.NotFound(c, "Invalid credentials.")
		case errors.Is(err, service.ErrTooManyAttempts):
			response.Message(c, http.StatusTooManyRequests, "Too many failed login attempts. Try again later.")
		default:
			log.Printf("[Handler] login failed: email=%s, err=%v", req.Email, err)
			response.ServerError(c, "Login failed.", nil)
		}
		return
	}

	response.Success(c, gin.H{
		"userDetails": user,
		"accessToken": token,
	})
}
