package public

import (
	"strconv"

	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMyRewardBalance 查询当前用户积分余额
func (h *Handler) GetMyRewardBalance(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	balance, err := h.RewardService.GetBalance(uid)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// ListMyRewardTransactions 查询当前用户积分流水
func (h *Handler) ListMyRewardTransactions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.RewardListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Type:     c.Query("type"),
	}
	txns, total, err := h.RewardService.ListTransactions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.store_failed", err)
		return
	}
	response.SuccessWithPage(c, txns, response.BuildPagination(page, pageSize, total))
}
