package handlers

import (
	"net/http"

	apperrors "github.com/NomadCrew/feedback-hub-backend/errors"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/gin-gonic/gin"
)

// FormIDHeader names the form a submission belongs to. Requests without it
// submit from a fresh form.
const FormIDHeader = "X-Form-ID"

// FeedbackHandler handles feedback submission and latest-feedback endpoints.
type FeedbackHandler struct {
	board FeedbackBoard
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(board FeedbackBoard) *FeedbackHandler {
	return &FeedbackHandler{board: board}
}

func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed(apperrors.CodeInvalidPayload, err.Error()))
		return false
	}
	return true
}

// SubmitFeedback godoc
// @Summary      Submit feedback
// @Description  Validates and stores one feedback entry
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Param        X-Form-ID  header    string                false  "Form identifier"
// @Param        body       body      docs.FeedbackRequest  true   "Feedback payload"
// @Success      201        {object}  docs.SubmitFeedbackResponse
// @Failure      400        {object}  docs.ErrorResponse
// @Failure      409        {object}  docs.ErrorResponse
// @Failure      503        {object}  docs.ErrorResponse
// @Router       /feedback [post]
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	var req types.FeedbackCreate
	if !bindJSONOrError(c, &req) {
		return
	}

	rec, err := h.board.Submit(c.Request.Context(), c.GetHeader(FormIDHeader), req.Draft())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, types.FeedbackSubmitted{
		Status:   "Feedback submitted successfully",
		Feedback: rec,
	})
}

// GetLatestFeedback godoc
// @Summary      Latest feedback
// @Description  Returns the most recent feedback entry, or empty/unavailable
// @Tags         feedback
// @Produce      json
// @Success      200  {object}  docs.LatestFeedbackResponse
// @Router       /feedback/latest [get]
func (h *FeedbackHandler) GetLatestFeedback(c *gin.Context) {
	c.JSON(http.StatusOK, h.board.Latest(c.Request.Context()))
}
