package public

import "github.com/greenmess-next/internal/provider"

// Handler 前台接口处理器入口
// 说明：该处理器用于学生、食堂员工与 NGO 侧 API。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
