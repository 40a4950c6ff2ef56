package telephony

import (
	"context"
	"errors"
	"sync"
)

// MockCall 记录一次 mock 投递
type MockCall struct {
	Phone   string
	Message string
	Method  string // "sms" 或 "call"
}

// MockClient 可配置的通道 mock，实现 Client 接口
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	// FailNext 置为 true 时，下一次调用返回 mock 错误并自动复位
	FailNext bool

	// FailAll 置为 true 时，所有调用均失败
	FailAll bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls: make([]MockCall, 0),
	}
}

func (m *MockClient) SendSMS(ctx context.Context, phone, message string) error {
	return m.record(phone, message, "sms")
}

func (m *MockClient) PlaceCall(ctx context.Context, phone, message string) error {
	return m.record(phone, message, "call")
}

func (m *MockClient) record(phone, message, method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{
		Phone:   phone,
		Message: message,
		Method:  method,
	})

	if m.FailNext {
		m.FailNext = false
		return errors.New("mock transport failure")
	}
	if m.FailAll {
		return errors.New("mock transport failure")
	}

	return nil
}

// CallsByMethod 按通道过滤调用记录
func (m *MockClient) CallsByMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []MockCall
	for _, c := range m.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset 清空调用记录与失败开关
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = m.Calls[:0]
	m.FailNext = false
	m.FailAll = false
}
