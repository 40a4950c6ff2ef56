package telephony

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	openapiutil "github.com/alibabacloud-go/openapi-util/service"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
	"go.uber.org/zap"

	"ConsoleExt/config"
	"ConsoleExt/pkg/breaker"
	"ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/metrics"
	"ConsoleExt/utils"
)

// AliyunClient 阿里云通道实现：短信走 Dysmsapi，外呼走 Dyvmsapi
type AliyunClient struct {
	smsClient   *openapi.Client
	voiceClient *openapi.Client
}

// NewAliyunClient 创建阿里云通道客户端
// 使用环境变量自动获取 AccessKey 和 SecretKey
// 需要设置环境变量：ALIBABA_CLOUD_ACCESS_KEY_ID 和 ALIBABA_CLOUD_ACCESS_KEY_SECRET
func NewAliyunClient() (*AliyunClient, error) {
	// 使用环境变量或配置文件自动获取凭据（推荐方式）
	// 凭据配置方式请参见：https://help.aliyun.com/document_detail/378661.html
	cred, err := credential.NewCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun credential: %w", err)
	}

	smsClient, err := openapi.NewClient(&openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dysmsapi.aliyuncs.com"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun sms client: %w", err)
	}

	voiceClient, err := openapi.NewClient(&openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dyvmsapi.aliyuncs.com"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun voice client: %w", err)
	}

	return &AliyunClient{
		smsClient:   smsClient,
		voiceClient: voiceClient,
	}, nil
}

// createApiInfo 创建 API 信息
func createApiInfo(action, version string) *openapi.Params {
	return &openapi.Params{
		Action:      tea.String(action),
		Version:     tea.String(version),
		Protocol:    tea.String("HTTPS"),
		Method:      tea.String("POST"),
		AuthType:    tea.String("AK"),
		Style:       tea.String("RPC"),
		Pathname:    tea.String("/"),
		ReqBodyType: tea.String("json"),
		BodyType:    tea.String("json"),
	}
}

// SendSMS 发送单条告警短信
func (c *AliyunClient) SendSMS(ctx context.Context, phone, message string) error {
	cfg := config.Cfg

	if cfg.SMSSignName == "" {
		return errors.NewNonRetryableError(errors.ErrSignNameRequired.Error())
	}
	if cfg.SMSTemplateCode == "" {
		return errors.NewNonRetryableError(errors.ErrTemplateCodeRequired.Error())
	}

	templateParam, err := json.Marshal(map[string]string{"alert": message})
	if err != nil {
		return fmt.Errorf("failed to marshal template param: %w", err)
	}

	params := createApiInfo("SendSms", "2017-05-25")

	queries := map[string]interface{}{
		"PhoneNumbers":  tea.String(phone),
		"SignName":      tea.String(cfg.SMSSignName),
		"TemplateCode":  tea.String(cfg.SMSTemplateCode),
		"TemplateParam": tea.String(string(templateParam)),
	}

	err = breaker.SMSBreaker.Call(func() error {
		runtime := &util.RuntimeOptions{}
		request := &openapi.OpenApiRequest{
			Query: openapiutil.Query(queries),
		}

		resp, callErr := c.smsClient.CallApi(params, request, runtime)
		if callErr != nil {
			return fmt.Errorf("failed to send SMS: %w", callErr)
		}
		return checkAliyunResponse(resp)
	})

	if err != nil {
		metrics.RecordSMSFailed("aliyun", err.Error())
		logger.Logger.Error("Failed to send SMS",
			zap.String("phone", utils.MaskPhone(phone)),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordSMSSent("aliyun")
	logger.Logger.Info("SMS sent successfully",
		zap.String("phone", utils.MaskPhone(phone)),
	)

	return nil
}

// PlaceCall 发起语音外呼，使用 TTS 模板播报告警内容
func (c *AliyunClient) PlaceCall(ctx context.Context, phone, message string) error {
	cfg := config.Cfg

	if cfg.VoiceTtsCode == "" {
		return errors.NewNonRetryableError(errors.ErrTtsCodeRequired.Error())
	}

	ttsParam, err := json.Marshal(map[string]string{"alert": message})
	if err != nil {
		return fmt.Errorf("failed to marshal tts param: %w", err)
	}

	params := createApiInfo("SingleCallByTts", "2017-05-25")

	queries := map[string]interface{}{
		"CalledNumber": tea.String(phone),
		"TtsCode":      tea.String(cfg.VoiceTtsCode),
		"TtsParam":     tea.String(string(ttsParam)),
	}
	if cfg.VoiceCalledShowNumber != "" {
		queries["CalledShowNumber"] = tea.String(cfg.VoiceCalledShowNumber)
	}

	err = breaker.VoiceBreaker.Call(func() error {
		runtime := &util.RuntimeOptions{}
		request := &openapi.OpenApiRequest{
			Query: openapiutil.Query(queries),
		}

		resp, callErr := c.voiceClient.CallApi(params, request, runtime)
		if callErr != nil {
			return fmt.Errorf("failed to place call: %w", callErr)
		}
		return checkAliyunResponse(resp)
	})

	if err != nil {
		metrics.RecordCallFailed("aliyun", err.Error())
		logger.Logger.Error("Failed to place call",
			zap.String("phone", utils.MaskPhone(phone)),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordCallPlaced("aliyun")
	logger.Logger.Info("Voice call placed successfully",
		zap.String("phone", utils.MaskPhone(phone)),
	)

	return nil
}

// checkAliyunResponse 检查 OpenAPI 网关状态码与业务返回码
func checkAliyunResponse(resp map[string]interface{}) error {
	if resp["statusCode"] != nil {
		if statusCode, ok := resp["statusCode"].(int); ok && statusCode != 200 {
			return fmt.Errorf("aliyun API error: statusCode=%d", statusCode)
		}
	}

	if resp["body"] != nil {
		bodyBytes, _ := json.Marshal(resp["body"])
		var bodyMap map[string]interface{}
		if err := json.Unmarshal(bodyBytes, &bodyMap); err == nil {
			if code, ok := bodyMap["Code"].(string); ok && code != "OK" {
				message := ""
				if msg, ok := bodyMap["Message"].(string); ok {
					message = msg
				}
				return fmt.Errorf("aliyun API returned %s: %s", code, message)
			}
		}
	}

	return nil
}
