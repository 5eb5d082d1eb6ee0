package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kramikkk/vitalink-ai/internal/requestdata"
	"github.com/kramikkk/vitalink-ai/internal/services"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Me(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	user, err := h.userService.GetByID(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, user)
}

// ListStudents backs the admin roster view.
func (h *UserHandler) ListStudents(c *gin.Context) {
	role := types.RoleStudent
	users, err := h.userService.List(c.Request.Context(), &role)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, users)
}
