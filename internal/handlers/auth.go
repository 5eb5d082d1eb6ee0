package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kramikkk/vitalink-ai/internal/requestdata"
	"github.com/kramikkk/vitalink-ai/internal/services"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	FullName         string  `json:"full_name" binding:"required"`
	Username         string  `json:"username" binding:"required"`
	Email            string  `json:"email" binding:"required"`
	Password         string  `json:"password" binding:"required"`
	StudentID        *string `json:"student_id"`
	Phone            string  `json:"phone"`
	EmergencyContact string  `json:"emergency_contact"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	user := &types.User{
		FullName:         req.FullName,
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		StudentID:        req.StudentID,
		Phone:            req.Phone,
		EmergencyContact: req.EmergencyContact,
		Role:             types.RoleStudent,
	}
	if err := h.authService.RegisterUser(c.Request.Context(), user); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	access, refresh, err := h.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"access_token": access, "refresh_token": refresh, "token_type": "bearer"})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	access, refresh, err := h.authService.RefreshUser(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"access_token": access, "refresh_token": refresh, "token_type": "bearer"})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.authService.LogoutUser(c.Request.Context(), rd.UserID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "logged out"})
}
