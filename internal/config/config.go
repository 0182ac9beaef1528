package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Stack holds every setting consumed by the orchestrator, the renderer and
// the built-in reverse proxy. It is loaded once at startup and never mutated.
type Stack struct {
	Environment string
	ProjectName string
	StackFile   string
	NetworkName string
	DockerHost  string

	ServerName string
	HTTPAddr   string
	HTTPSAddr  string
	HTTPSPort  int

	WordPressHome string
	MySQLHome     string
	LogDir        string
	CertDir       string
	DocumentRoot  string

	NginxConfPath   string
	UploadsConfPath string
	ProxyContainer  string

	AppHost string
	AppPort int

	DB        Database
	Admin     Admin
	Upload    UploadPolicy
	Readiness Readiness
	Ops       Ops
	RateLimit RateLimit
}

// Database describes the MySQL service endpoint and credentials.
type Database struct {
	Host         string
	Port         int
	RootPassword string
	User         string
	Password     string
	Name         string
}

// Admin toggles the direct database browser service.
type Admin struct {
	Enabled bool
	Port    int
}

// UploadPolicy carries the scalar PHP runtime limits applied to every request.
type UploadPolicy struct {
	MaxFileSize  ByteSize
	MaxPostSize  ByteSize
	MemoryLimit  ByteSize
	MaxExecution time.Duration
}

// Readiness bounds the health-check loop run between dependent services.
type Readiness struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
	LogMarker   string
}

// Ops configures the local operations listener of the built-in proxy.
type Ops struct {
	Addr string
}

// RateLimit configures login throttling on the proxy.
type RateLimit struct {
	LoginLimit    int
	LoginWindow   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

const dbReadyMarker = "ready for connections"

// Load overlays the env file onto the process environment and builds the
// stack configuration. A missing env file is not an error; explicit process
// environment always wins over file values.
func Load(envFile string) (Stack, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Stack{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	maxFile, err := sizeFromEnv("UPLOAD_MAX_FILESIZE", "64M")
	if err != nil {
		return Stack{}, err
	}
	maxPost, err := sizeFromEnv("UPLOAD_MAX_POSTSIZE", "64M")
	if err != nil {
		return Stack{}, err
	}
	memLimit, err := sizeFromEnv("PHP_MEMORY_LIMIT", "256M")
	if err != nil {
		return Stack{}, err
	}

	cfg := Stack{
		Environment: GetString("APP_ENV", "production"),
		ProjectName: GetString("STACK_PROJECT", "wordpress"),
		StackFile:   GetString("STACK_FILE", "docker-compose.yml"),
		NetworkName: GetString("STACK_NETWORK", "wordpress-docker"),
		DockerHost:  GetString("DOCKER_HOST", ""),

		ServerName: GetString("SERVER_NAME", "localhost"),
		HTTPAddr:   GetString("HTTP_ADDR", ":80"),
		HTTPSAddr:  GetString("HTTPS_ADDR", ":443"),
		HTTPSPort:  GetInt("HTTPS_PORT", 443),

		WordPressHome: GetString("WORDPRESS_LOCAL_HOME", "./wordpress"),
		MySQLHome:     GetString("MYSQL_LOCAL_HOME", "./dbdata"),
		LogDir:        GetString("LOG_DIR", "./logs"),
		CertDir:       GetString("CERT_DIR", "./certs"),
		DocumentRoot:  GetString("DOCUMENT_ROOT", "/var/www/html"),

		NginxConfPath:   GetString("NGINX_CONF", "./nginx/default.conf"),
		UploadsConfPath: GetString("WORDPRESS_UPLOADS_CONFIG", "./config/uploads.ini"),
		ProxyContainer:  GetString("NGINX_CONTAINER_NAME", "nginx"),

		AppHost: GetString("WORDPRESS_HOST", "wordpress"),
		AppPort: GetInt("WORDPRESS_FCGI_PORT", 9000),

		DB: Database{
			Host:         GetString("MYSQL_HOST", "database"),
			Port:         GetInt("MYSQL_PORT", 3306),
			RootPassword: GetString("MYSQL_ROOT_PASSWORD", ""),
			User:         GetString("MYSQL_USER", "wordpress"),
			Password:     GetString("MYSQL_PASSWORD", ""),
			Name:         GetString("MYSQL_DATABASE", "wordpress"),
		},
		Admin: Admin{
			Enabled: GetBool("ADMINER_ENABLED", false),
			Port:    GetInt("ADMINER_PORT", 9001),
		},
		Upload: UploadPolicy{
			MaxFileSize:  maxFile,
			MaxPostSize:  maxPost,
			MemoryLimit:  memLimit,
			MaxExecution: time.Duration(GetInt("PHP_MAX_EXECUTION_SECONDS", 300)) * time.Second,
		},
		Readiness: Readiness{
			Interval:    time.Duration(GetInt("READINESS_INTERVAL_SECONDS", 2)) * time.Second,
			MaxInterval: time.Duration(GetInt("READINESS_MAX_INTERVAL_SECONDS", 10)) * time.Second,
			Timeout:     time.Duration(GetInt("READINESS_TIMEOUT_SECONDS", 120)) * time.Second,
			LogMarker:   GetString("MYSQL_READY_MARKER", dbReadyMarker),
		},
		Ops: Ops{
			Addr: GetString("OPS_ADDR", "127.0.0.1:8088"),
		},
		RateLimit: RateLimit{
			LoginLimit:    GetInt("LOGIN_RATE_LIMIT", 10),
			LoginWindow:   time.Duration(GetInt("LOGIN_RATE_WINDOW_SECONDS", 60)) * time.Second,
			RedisAddr:     GetString("RATE_LIMIT_REDIS_ADDR", ""),
			RedisPassword: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       GetInt("RATE_LIMIT_REDIS_DB", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Stack{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a working stack.
func (s Stack) Validate() error {
	if s.DB.User == "" || s.DB.Name == "" {
		return fmt.Errorf("database user and name are required")
	}
	if s.Upload.MaxFileSize > s.Upload.MaxPostSize {
		return fmt.Errorf("upload_max_filesize %s exceeds post_max_size %s", s.Upload.MaxFileSize, s.Upload.MaxPostSize)
	}
	if s.Upload.MaxExecution <= 0 {
		return fmt.Errorf("execution ceiling must be positive")
	}
	if s.Readiness.Timeout <= 0 {
		return fmt.Errorf("readiness timeout must be positive")
	}
	return nil
}

// Addr returns the host:port endpoint used by database clients and probes.
func (d Database) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

func sizeFromEnv(key, fallback string) (ByteSize, error) {
	raw := GetString(key, fallback)
	size, err := ParseByteSize(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return size, nil
}
