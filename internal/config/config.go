package config

import (
	"fmt"
	"os"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config 在离屋感知服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	HTTP struct {
		Addr string
	}

	// 人脸识别服务（外部）
	Recognizer struct {
		BaseURL        string
		TimeoutSeconds int
		RetryCount     int
	}

	// 感知服务特定配置
	Presence struct {
		// 活动台账发布的 Redis Stream
		ActivityStream string

		// Redis 实时状态缓存
		Cache struct {
			RoomKeyPrefix   string // 如 "presence:room:"
			PersonKeyPrefix string // 如 "presence:person:"
			HouseEmptyKey   string // 如 "presence:house:empty"
			TTLSeconds      int    // 0 表示不过期
		}

		// 灯控下发主题模板，%s 为房间ID
		LightTopicPattern string
		LightAllOffTopic  string

		// 识别到人时回发的资产引用
		AssetRef string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "ecoovision")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "ecoovision-presence")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Recognizer.BaseURL = getEnv("RECOGNIZER_BASE_URL", "http://localhost:8500")
	cfg.Recognizer.TimeoutSeconds = getEnvInt("RECOGNIZER_TIMEOUT", 10)
	cfg.Recognizer.RetryCount = getEnvInt("RECOGNIZER_RETRY_COUNT", 2)

	cfg.Presence.ActivityStream = getEnv("ACTIVITY_STREAM", "presence:activities")
	cfg.Presence.Cache.RoomKeyPrefix = getEnv("CACHE_ROOM_PREFIX", "presence:room:")
	cfg.Presence.Cache.PersonKeyPrefix = getEnv("CACHE_PERSON_PREFIX", "presence:person:")
	cfg.Presence.Cache.HouseEmptyKey = getEnv("CACHE_HOUSE_EMPTY_KEY", "presence:house:empty")
	cfg.Presence.Cache.TTLSeconds = getEnvInt("CACHE_TTL", 0)

	cfg.Presence.LightTopicPattern = getEnv("LIGHT_TOPIC_PATTERN", "home/%s/light/set")
	cfg.Presence.LightAllOffTopic = getEnv("LIGHT_ALL_OFF_TOPIC", "home/lights/all/set")

	cfg.Presence.AssetRef = getEnv("ASSET_REF", "media/simu/house_imageON.jpg")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil {
			return n
		}
	}
	return defaultValue
}
