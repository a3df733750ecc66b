package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SuggestedSettings AI 助手给出的整定值建议
type SuggestedSettings struct {
	Ir  *float64 `json:"ir"`
	Tr  *float64 `json:"tr"`
	Isd *float64 `json:"isd"`
	Tsd *float64 `json:"tsd"`
	Ii  *float64 `json:"ii"`
}

// AssistClient 整定值建议的外部 AI 服务客户端
type AssistClient interface {
	SuggestSettings(ctx context.Context, req SuggestSettingsRequest) (*SuggestedSettings, error)
}

// SuggestSettingsRequest 请求体，携带设备上下文供模型参考
type SuggestSettingsRequest struct {
	Site          string   `json:"site"`
	DeviceID      string   `json:"device_id"`
	DeviceName    string   `json:"device_name"`
	RatedCurrentA float64  `json:"rated_current_a"`
	BreakingKA    *float64 `json:"breaking_ka"`
	VoltageV      *float64 `json:"voltage_v"`
	ParentName    string   `json:"parent_name"`
}

type assistResponse struct {
	Status   int                `json:"status"`
	Msg      string             `json:"msg"`
	Settings *SuggestedSettings `json:"settings"`
}

// RestyAssistClient 基于 resty 的 AssistClient 实现
type RestyAssistClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewAssistClient 创建 AI 助手客户端
func NewAssistClient(baseURL string, timeout time.Duration, logger *zap.Logger) *RestyAssistClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RestyAssistClient{
		httpClient: client,
		logger:     logger,
	}
}

// SuggestSettings 调用助手服务为单个设备生成整定值建议
func (c *RestyAssistClient) SuggestSettings(ctx context.Context, req SuggestSettingsRequest) (*SuggestedSettings, error) {
	c.logger.Info("Calling assist API: suggestSettings",
		zap.String("site", req.Site),
		zap.String("device_id", req.DeviceID),
		zap.String("device_name", req.DeviceName),
	)

	var response assistResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&response).
		Post("/assist/suggestSettings")

	if err != nil {
		c.logger.Error("assist API call failed",
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrAssistUnavailable, err)
	}
	if resp.StatusCode() >= 400 {
		c.logger.Error("assist API returned HTTP error",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("%w: http %d", ErrAssistUnavailable, resp.StatusCode())
	}
	if response.Status != 0 {
		c.logger.Error("assist API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("assist error: %s (status: %d)", response.Msg, response.Status)
	}
	if response.Settings == nil {
		return nil, fmt.Errorf("assist returned empty settings")
	}
	return response.Settings, nil
}
