package api

import (
	"net/http"

	"portfolio-dashboard/internal/services"

	"github.com/gin-gonic/gin"
)

// WithdrawalHandler handles withdrawal submission
type WithdrawalHandler struct {
	scope             *sessionScope
	withdrawalService WithdrawalServiceInterface
	recorder          WithdrawalRecorder
}

// NewWithdrawalHandler creates a new withdrawal handler. recorder may be nil.
func NewWithdrawalHandler(scope *sessionScope, withdrawalService WithdrawalServiceInterface, recorder WithdrawalRecorder) *WithdrawalHandler {
	return &WithdrawalHandler{
		scope:             scope,
		withdrawalService: withdrawalService,
		recorder:          recorder,
	}
}

// CreateWithdrawal validates and submits a withdrawal
// @Summary Submit withdrawal
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.WithdrawalRequest true "Withdrawal request"
// @Success 201 {object} models.Withdrawal
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /withdrawals [post]
func (h *WithdrawalHandler) CreateWithdrawal(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	var req services.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if bindingValidationError(err) != nil {
			h.record("rejected")
		}
		respondBindError(c, err, "INVALID_REQUEST", "Invalid request format")
		return
	}

	withdrawal, err := h.withdrawalService.Create(c.Request.Context(), caller.Owner, account, &req)
	if err != nil {
		if services.IsValidationError(err) {
			h.record("rejected")
		} else {
			h.record("failed")
		}
		respondError(c, err, http.StatusBadGateway, "WITHDRAWAL_FAILED", "Failed to submit withdrawal")
		return
	}

	h.record("submitted")
	c.JSON(http.StatusCreated, CreateSuccessResponse(withdrawal, getTraceID(c)))
}

// GetWithdrawalConfig returns the submission limits
// @Summary Withdrawal limits
// @Tags Withdrawals
// @Produce json
// @Success 200 {object} WithdrawalConfigResponse
// @Router /withdrawals/config [get]
func (h *WithdrawalHandler) GetWithdrawalConfig(c *gin.Context) {
	c.JSON(http.StatusOK, CreateSuccessResponse(WithdrawalConfigResponse{
		MinWithdrawal: h.withdrawalService.MinWithdrawal(),
	}, getTraceID(c)))
}

func (h *WithdrawalHandler) record(result string) {
	if h.recorder != nil {
		h.recorder.RecordWithdrawal(result)
	}
}
