package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 支持的存储后端
const (
	DriverMongo = "mongo"
	DriverMySQL = "mysql"
)

// 支持的聊天消息总线
const (
	BusMemory = "memory"
	BusNATS   = "nats"
)

// Config 应用配置，启动时构造一次，按指针传递给各组件
type Config struct {
	Port        string
	Environment string
	Version     string

	// 数据库
	DBDriver      string
	MongoURI      string
	MongoDatabase string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string

	// 认证
	JWTSecret      string // HS256 签名密钥
	ClerkJWTKey    string // RS256 公钥 PEM
	ClerkSecretKey string
	ClerkAPIURL    string
	AdminEmail     string

	// 对象存储
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MediaPublicURL string

	// 上传
	ImageMaxWidth        int
	ImageMaxHeight       int
	UploadTimeout        time.Duration
	MaxUploadSize        int64
	MediaCleanupOnDelete bool
	TempDir              string
	TempMaxAge           time.Duration
	FFmpegPath           string

	// CORS
	ClientURLs []string

	// 反向代理地址（IP 或 CIDR），只有来自这些地址的请求才读取 X-Forwarded-For
	TrustedProxies []string

	// Redis配置
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 聊天
	ChatBus string
	NATSURL string

	// 日志
	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration 支持 "90s"、"1h" 这类写法
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// splitList 拆分逗号分隔的列表，忽略空项
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv 仅从当前环境变量构造配置，不读取 .env
func FromEnv() *Config {
	env := getEnv("APP_ENV", getEnv("NODE_ENV", "development"))

	return &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: env,
		Version:     getEnv("APP_VERSION", "1.0.0"),

		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "auralis"),
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "root"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        getEnv("DB_NAME", "auralis"),

		JWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		ClerkJWTKey:    os.Getenv("CLERK_JWT_KEY"),
		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		ClerkAPIURL:    getEnv("CLERK_API_URL", "https://api.clerk.com"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "auralis"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MediaPublicURL: os.Getenv("MEDIA_PUBLIC_URL"),

		ImageMaxWidth:        getEnvInt("IMAGE_MAX_WIDTH", 1000),
		ImageMaxHeight:       getEnvInt("IMAGE_MAX_HEIGHT", 1000),
		UploadTimeout:        getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),
		MaxUploadSize:        getEnvInt64("MAX_UPLOAD_SIZE", 10<<20),
		MediaCleanupOnDelete: getEnvBool("MEDIA_CLEANUP_ON_DELETE", false),
		TempDir:              getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "auralis")),
		TempMaxAge:           getEnvDuration("TEMP_MAX_AGE", 30*time.Minute),
		FFmpegPath:           getEnv("FFMPEG_PATH", "ffmpeg"),

		ClientURLs:     splitList(getEnv("CLIENT_URL", "http://localhost:5173,http://localhost:3000")),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ChatBus: strings.ToLower(getEnv("CHAT_BUS", BusMemory)),
		NATSURL: getEnv("NATS_URL", "nats://127.0.0.1:4222"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate 检查配置，收集所有问题后一并返回
func (c *Config) Validate() error {
	var errs []error

	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port number, got %q", c.Port))
	}

	switch c.DBDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when DB_DRIVER=mongo"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGODB_DATABASE must not be empty"))
		}
	case DriverMySQL:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required when DB_DRIVER=mysql"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverMongo, DriverMySQL, c.DBDriver))
	}

	if c.JWTSecret == "" && c.ClerkJWTKey == "" {
		errs = append(errs, errors.New("one of AUTH_JWT_SECRET or CLERK_JWT_KEY is required"))
	}

	switch c.ChatBus {
	case BusMemory:
	case BusNATS:
		if c.NATSURL == "" {
			errs = append(errs, errors.New("NATS_URL is required when CHAT_BUS=nats"))
		}
	default:
		errs = append(errs, fmt.Errorf("CHAT_BUS must be %q or %q, got %q", BusMemory, BusNATS, c.ChatBus))
	}

	if c.ImageMaxWidth <= 0 || c.ImageMaxHeight <= 0 {
		errs = append(errs, errors.New("IMAGE_MAX_WIDTH and IMAGE_MAX_HEIGHT must be positive"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	if c.UploadTimeout <= 0 {
		errs = append(errs, errors.New("UPLOAD_TIMEOUT must be positive"))
	}

	if _, err := c.TrustedNetworks(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// TrustedNetworks 解析 TRUSTED_PROXIES，单个 IP 按 /32 或 /128 处理
func (c *Config) TrustedNetworks() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", entry)
		}
		bits := 128
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}
