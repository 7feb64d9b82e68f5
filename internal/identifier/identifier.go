package identifier

import (
	"context"

	"ecoovision-presence/internal/models"
)

// Identifier 人脸识别能力（外部协作方）
// 无人脸的帧必须返回空列表而不是错误
type Identifier interface {
	Identify(ctx context.Context, frame []byte) ([]models.RecognizedFace, error)
}
