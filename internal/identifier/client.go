package identifier

import (
	"context"
	"fmt"
	"time"

	"ecoovision-presence/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// recognizeResponse 识别服务响应
type recognizeResponse struct {
	Status int                     `json:"status"`
	Msg    string                  `json:"msg"`
	Faces  []models.RecognizedFace `json:"faces"`
}

// Client 人脸识别服务 HTTP 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建识别服务客户端
func NewClient(baseURL string, timeout time.Duration, retryCount int, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// Identify 识别一帧图像中的已知人脸
// 帧字节原样上送（解码由识别服务负责）；无人脸时返回空列表
func (c *Client) Identify(ctx context.Context, frame []byte) ([]models.RecognizedFace, error) {
	var response recognizeResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(frame).
		SetResult(&response).
		Post("/recognize")

	if err != nil {
		return nil, fmt.Errorf("failed to call recognizer: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("recognizer returned HTTP %d", resp.StatusCode())
	}

	if response.Status != 0 {
		return nil, fmt.Errorf("recognizer error: %s (status: %d)", response.Msg, response.Status)
	}

	c.logger.Debug("Frame identified",
		zap.Int("frame_size", len(frame)),
		zap.Int("face_count", len(response.Faces)),
	)

	if response.Faces == nil {
		return []models.RecognizedFace{}, nil
	}
	return response.Faces, nil
}
