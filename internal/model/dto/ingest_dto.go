package dto

// ========== 告警上报 DTO ==========

// IngestRequest 告警上报请求
// Context 为任意键值对，参与去重指纹计算
type IngestRequest struct {
	Message    string                 `json:"message" binding:"required"`
	StackTrace string                 `json:"stack_trace"`
	Context    map[string]interface{} `json:"context"`
}

// IngestResponse 告警上报响应，派发为异步执行
type IngestResponse struct {
	Success      bool               `json:"success"`
	Notification IngestNotification `json:"notification"`
}

// IngestNotification 上报成功后的通知快照
type IngestNotification struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
