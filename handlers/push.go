package handlers

import (
	"log"
	"net/http"

	"newgenmusic/notify"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

type PushHandler struct {
	push     *notify.WebPush
	validate *validator.Validate
}

func NewPushHandler(push *notify.WebPush) *PushHandler {
	return &PushHandler{push: push, validate: validator.New()}
}

func (h *PushHandler) VapidPublicKey(c *gin.Context) {
	if !h.push.Enabled() {
		writeError(c, http.StatusServiceUnavailable, "push_disabled", "VAPID public key not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.push.PublicKey()})
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "validation", err.Error())
		return
	}

	sub, err := h.push.Subscribe(c.Request.Context(), req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		handleServiceError(c, "SubscribePush", err)
		return
	}

	log.Printf("Push subscription saved: %s", sub.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved successfully"})
}
