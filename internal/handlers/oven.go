package handlers

import (
	"context"
	"errors"
	"net/http"

	"drying_oven/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK          = "ok"
	statusStarted     = "started"
	statusStopped     = "stopped"
	statusPaused      = "paused"
	statusResumed     = "resumed"
	statusPresetSet   = "preset_selected"
	statusFanToggled  = "fan230_toggled"
	statusLampToggled = "lamp_toggled"

	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and the current snapshot.
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	resp["state"] = h.services.Monitoring.GetState()
	c.JSON(http.StatusOK, resp)
}

// commandStatus maps oven command refusals to 409 and bad input to 400.
// Anything else means the policy changed but could not reach the link.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrDoorOpen),
		errors.Is(err, service.ErrNoStatus),
		errors.Is(err, service.ErrNotStopped),
		errors.Is(err, service.ErrOverrideLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownPreset):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// runCommand executes one oven command and writes the outcome.
func (h *Handler) runCommand(c *gin.Context, status, logKey string, cmd func(ctx context.Context) error, extra gin.H) {
	if err := cmd(c.Request.Context()); err != nil {
		code := commandStatus(err)
		if h.log != nil {
			if code == http.StatusBadGateway {
				h.log.Errorw(logKey, "err", err)
			} else {
				h.log.Infow(logKey, "err", err)
			}
		}
		c.JSON(code, gin.H{"error": err.Error(), "state": h.services.Monitoring.GetState()})
		return
	}
	if h.log != nil {
		h.log.Infow("oven_command", "status", status, "operator_id", operatorID(c))
	}
	h.respondWithStatusAndState(c, status, extra)
}

// SelectPresetRequest is the payload of the preset selection.
type SelectPresetRequest struct {
	ID int `json:"id" binding:"required" example:"2"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start drying cycle
// @Description  Loads the selected preset's duration. No-op unless the oven is stopped.
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/oven/start [post]
// @Security     BearerAuth
func (h *Handler) startCycle(c *gin.Context) {
	h.runCommand(c, statusStarted, "oven_start_failed", h.services.Oven.Start, nil)
}

// @Summary      Stop drying cycle
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/oven/stop [post]
// @Security     BearerAuth
func (h *Handler) stopCycle(c *gin.Context) {
	h.runCommand(c, statusStopped, "oven_stop_failed", h.services.Oven.Stop, nil)
}

// @Summary      Pause into waiting
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/oven/pause [post]
// @Security     BearerAuth
func (h *Handler) pauseCycle(c *gin.Context) {
	h.runCommand(c, statusPaused, "oven_pause_failed", h.services.Oven.PauseWait, nil)
}

// @Summary      Resume from waiting
// @Description  Refused with 409 while the door is open or before the first STATUS.
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/oven/resume [post]
// @Security     BearerAuth
func (h *Handler) resumeCycle(c *gin.Context) {
	h.runCommand(c, statusResumed, "oven_resume_refused", h.services.Oven.ResumeFromWait, nil)
}

// @Summary      Select preset
// @Tags         oven
// @Accept       json
// @Produce      json
// @Param        body  body   SelectPresetRequest  true  "Preset id"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/v1/oven/preset [post]
// @Security     BearerAuth
func (h *Handler) selectPreset(c *gin.Context) {
	var req SelectPresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.runCommand(c, statusPresetSet, "oven_select_preset_failed", func(ctx context.Context) error {
		return h.services.Oven.SelectPreset(ctx, req.ID)
	}, gin.H{"id": req.ID})
}

// @Summary      Toggle 230V fan
// @Description  Manual override, only while stopped or waiting.
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/v1/oven/fan230 [post]
// @Security     BearerAuth
func (h *Handler) toggleFan230(c *gin.Context) {
	h.runCommand(c, statusFanToggled, "oven_fan230_refused", h.services.Oven.ToggleFan230, nil)
}

// @Summary      Toggle chamber lamp
// @Tags         oven
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/oven/lamp [post]
// @Security     BearerAuth
func (h *Handler) toggleLamp(c *gin.Context) {
	h.runCommand(c, statusLampToggled, "oven_lamp_failed", h.services.Oven.ToggleLamp, nil)
}

// @Summary      Get oven state
// @Tags         oven
// @Produce      json
// @Success      200  {object}  models.OvenRuntimeSnapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/oven/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.GetState())
}

// @Summary      List presets
// @Tags         oven
// @Produce      json
// @Success      200  {array}   models.Preset
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/oven/presets [get]
// @Security     BearerAuth
func (h *Handler) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Oven.Presets())
}

// @Summary      Link diagnostics
// @Tags         link
// @Produce      json
// @Success      200  {object}  models.LinkDiagnostics
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/link [get]
// @Security     BearerAuth
func (h *Handler) getLink(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.GetLink())
}
