package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagecraft/action-service/models"
	"github.com/pagecraft/action-service/pkg/logger"
	"github.com/pagecraft/action-service/services"
)

// ActionDispatcher is implemented by services.Dispatcher.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, req services.DispatchRequest) *services.DispatchResult
}

// DispatchPayload is one button click as posted by the page runtime.
type DispatchPayload struct {
	Action    *models.ActionDescriptor `json:"action"`
	AttemptID string                   `json:"attempt_id" validate:"omitempty,uuid4"`
	EditMode  bool                     `json:"edit_mode"`
	Fields    []models.FormField       `json:"fields"`
}

type ActionController struct {
	Dispatcher ActionDispatcher
	Validator  *RequestValidator
}

func NewActionController(dispatcher ActionDispatcher) *ActionController {
	return &ActionController{
		Dispatcher: dispatcher,
		Validator:  NewRequestValidator(),
	}
}

// Dispatch handles POST /actions/dispatch. The answer is always a
// DispatchResult; checkout failures surface as notice effects, not as HTTP
// errors, so the page runtime has a single rendering path.
func (ac *ActionController) Dispatch(c *gin.Context) {
	var payload DispatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.Warn(c, "rejecting unreadable dispatch payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := ac.Validator.ValidateDispatch(&payload); err != nil {
		logger.Warn(c, "rejecting invalid dispatch payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := ac.Dispatcher.Dispatch(c, services.DispatchRequest{
		Action:    payload.Action,
		AttemptID: payload.AttemptID,
		EditMode:  payload.EditMode,
		Fields:    payload.Fields,
	})

	c.JSON(http.StatusOK, result)
}
