package public

import (
	handlershared "github.com/greenmess-next/internal/http/handlers/shared"
	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/i18n"
	"github.com/greenmess-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// respondValidationError 返回校验错误响应，携带不合法字段明细。
func respondValidationError(c *gin.Context, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), "error.validation")
	fields := service.ValidationFields(err)
	if len(fields) == 0 {
		response.Error(c, response.CodeBadRequest, msg)
		return
	}
	response.ErrorWithData(c, response.CodeBadRequest, msg, gin.H{"fields": fields})
}
