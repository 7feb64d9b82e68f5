package lights

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Broker 灯控命令的发布通道（用于在单元测试中替换 MQTT）
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// lightCommand 下发给智能灯的命令载荷
type lightCommand struct {
	On bool `json:"on"`
}

// MQTTPublisher 通过 MQTT 下发房间灯开关命令
// 消息 retained，灯重连后能恢复到最后一次命令的状态
type MQTTPublisher struct {
	broker       Broker
	topicPattern string // 如 "home/%s/light/set"
	allOffTopic  string
	qos          byte
	logger       *zap.Logger
}

// NewMQTTPublisher 创建 MQTT 灯控发布器
func NewMQTTPublisher(broker Broker, topicPattern, allOffTopic string, qos byte, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		broker:       broker,
		topicPattern: topicPattern,
		allOffTopic:  allOffTopic,
		qos:          qos,
		logger:       logger,
	}
}

// PublishLight 下发单个房间的灯命令
func (p *MQTTPublisher) PublishLight(roomID string, on bool) error {
	payload, err := json.Marshal(lightCommand{On: on})
	if err != nil {
		return fmt.Errorf("failed to marshal light command: %w", err)
	}

	topic := fmt.Sprintf(p.topicPattern, roomID)
	if err := p.broker.Publish(topic, p.qos, true, payload); err != nil {
		return fmt.Errorf("failed to publish light command: %w", err)
	}

	p.logger.Debug("Light command published",
		zap.String("topic", topic),
		zap.Bool("on", on),
	)
	return nil
}

// PublishAllOff 下发全屋灯全灭命令（空屋聚合覆盖）
func (p *MQTTPublisher) PublishAllOff() error {
	payload, err := json.Marshal(lightCommand{On: false})
	if err != nil {
		return fmt.Errorf("failed to marshal light command: %w", err)
	}

	if err := p.broker.Publish(p.allOffTopic, p.qos, true, payload); err != nil {
		return fmt.Errorf("failed to publish all-off command: %w", err)
	}

	p.logger.Debug("All-off light command published", zap.String("topic", p.allOffTopic))
	return nil
}

// NopPublisher 空实现（测试或未配置 MQTT 的部署）
type NopPublisher struct{}

func (NopPublisher) PublishLight(roomID string, on bool) error { return nil }
func (NopPublisher) PublishAllOff() error                      { return nil }
