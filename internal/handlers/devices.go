package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kramikkk/vitalink-ai/internal/requestdata"
	"github.com/kramikkk/vitalink-ai/internal/services"
)

type DeviceHandler struct {
	deviceService services.DeviceService
}

func NewDeviceHandler(deviceService services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

type pairRegisterRequest struct {
	DeviceID    string `json:"device_id" binding:"required"`
	PairingCode string `json:"pairing_code" binding:"required"`
}

// RegisterForPairing is called by the wristband on boot with its generated
// pairing code.
func (h *DeviceHandler) RegisterForPairing(c *gin.Context) {
	var req pairRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	device, alreadyPaired, err := h.deviceService.RegisterForPairing(c.Request.Context(), req.DeviceID, req.PairingCode)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if alreadyPaired {
		RespondOK(c, gin.H{"message": "Device already paired", "device_id": device.DeviceID, "paired": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Device registered for pairing",
		"device_id": device.DeviceID,
	})
}

// Status is polled by the wristband while it waits to be claimed.
func (h *DeviceHandler) Status(c *gin.Context) {
	device, err := h.deviceService.Status(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"device_id": device.DeviceID,
		"paired":    device.Paired(),
		"user_id":   device.UserID,
	})
}

type pairClaimRequest struct {
	PairingCode string `json:"pairing_code" binding:"required"`
}

func (h *DeviceHandler) PairWithCode(c *gin.Context) {
	var req pairClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	device, err := h.deviceService.ClaimPairing(c.Request.Context(), req.PairingCode, rd.UserID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"message":   "Device successfully paired",
		"device_id": device.DeviceID,
		"user_id":   device.UserID,
	})
}

func (h *DeviceHandler) MyDevice(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	device, err := h.deviceService.MyDevice(c.Request.Context(), rd.UserID)
	if err != nil {
		// No paired device is a normal answer, not an error.
		RespondOK(c, gin.H{"device": nil})
		return
	}
	RespondOK(c, gin.H{"device_id": device.DeviceID, "paired_at": device.PairedAt})
}

func (h *DeviceHandler) Unpair(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	device, err := h.deviceService.UnpairByUser(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Device unpaired successfully", "device_id": device.DeviceID})
}

// List returns every device with owner info. Admin only (router enforced).
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.deviceService.List(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	out := make([]gin.H, 0, len(devices))
	for _, d := range devices {
		entry := gin.H{
			"id":        d.ID,
			"device_id": d.DeviceID,
			"owner_id":  d.UserID,
			"status":    string(d.State),
			"paired_at": d.PairedAt,
			"last_seen": d.CreatedAt,
		}
		if d.User != nil {
			entry["owner_name"] = d.User.FullName
			entry["owner_email"] = d.User.Email
		}
		out = append(out, entry)
	}
	RespondOK(c, out)
}

func (h *DeviceHandler) AdminUnpair(c *gin.Context) {
	device, err := h.deviceService.Unpair(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Device unpaired successfully", "device_id": device.DeviceID})
}

func (h *DeviceHandler) Delete(c *gin.Context) {
	deviceID := c.Param("device_id")
	if err := h.deviceService.Delete(c.Request.Context(), deviceID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Device deleted successfully", "device_id": deviceID})
}
