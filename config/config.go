package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogLevel    string
	FrontendURL string
	// Recruitment REST API (resume upload, resume list, job titles)
	RecruitmentAPIURL   string
	RecruitmentAPIToken string
	// Realtime server (admin room push)
	RealtimeURL          string
	RealtimeToken        string
	RealtimeReconnectMax time.Duration
	// Admin dashboard auth
	AdminJWTSecret string
	AdminJWKSURL   string
	// Chat assistant
	ChatTypingDelay time.Duration
	ChatCloseDelay  time.Duration
	ChatSessionTTL  time.Duration
	ResumePageLimit int
	// Front-end route offered when the applicant picks "create-new"
	JobTitleCreatePath string
	// Outbound HTTP client
	HTTPClientTimeout          time.Duration
	HTTPRetryCount             int
	HTTPRetryWait              time.Duration
	CBMinimumRequests          int
	CBFailureRateThreshold     int
	CBPermittedCallsInHalfOpen int
	CBOpenStateTimeout         time.Duration
	CBSlidingWindow            time.Duration
	// Redis (upload rate limiting)
	RedisURL      string
	RedisPassword string
	// Upload limits
	UploadLimitPerMinute int
	UploadLimitPerDay    int
	// Malware scanning (empty = no-op scanner)
	ClamAVAddress string
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		// Trailing slash is stripped so path joins never produce "//resumes"
		RecruitmentAPIURL:   strings.TrimRight(getEnv("RECRUITMENT_API_URL", "http://localhost:5000/api"), "/"),
		RecruitmentAPIToken: getEnv("RECRUITMENT_API_TOKEN", ""),

		RealtimeURL:          getEnv("REALTIME_URL", "ws://localhost:5000/ws"),
		RealtimeToken:        getEnv("REALTIME_TOKEN", ""),
		RealtimeReconnectMax: getEnvDuration("REALTIME_RECONNECT_MAX", 30*time.Second),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminJWKSURL:   getEnv("ADMIN_JWKS_URL", ""),

		ChatTypingDelay: getEnvDuration("CHAT_TYPING_DELAY", time.Second),
		ChatCloseDelay:  getEnvDuration("CHAT_CLOSE_DELAY", 3*time.Second),
		ChatSessionTTL:  getEnvDuration("CHAT_SESSION_TTL", 30*time.Minute),
		ResumePageLimit: getEnvInt("RESUME_PAGE_LIMIT", 10),

		JobTitleCreatePath: getEnv("JOB_TITLE_CREATE_PATH", "/job-titles/new"),

		HTTPClientTimeout:          getEnvDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second),
		HTTPRetryCount:             getEnvInt("HTTP_RETRY_COUNT", 2),
		HTTPRetryWait:              getEnvDuration("HTTP_RETRY_WAIT", 500*time.Millisecond),
		CBMinimumRequests:          getEnvInt("CB_MINIMUM_REQUESTS", 5),
		CBFailureRateThreshold:     getEnvInt("CB_FAILURE_RATE_THRESHOLD", 50),
		CBPermittedCallsInHalfOpen: getEnvInt("CB_PERMITTED_CALLS_IN_HALF_OPEN", 2),
		CBOpenStateTimeout:         getEnvDuration("CB_OPEN_STATE_TIMEOUT", 10*time.Second),
		CBSlidingWindow:            getEnvDuration("CB_SLIDING_WINDOW", time.Minute),

		RedisURL:             getEnv("REDIS_URL", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		UploadLimitPerMinute: getEnvInt("UPLOAD_LIMIT_PER_MINUTE", 5),
		UploadLimitPerDay:    getEnvInt("UPLOAD_LIMIT_PER_DAY", 20),
		ClamAVAddress:        getEnv("CLAMAV_ADDRESS", ""),
	}

	if cfg.AdminJWTSecret == "" && cfg.AdminJWKSURL == "" {
		log.Println("WARNING: ADMIN_JWT_SECRET and ADMIN_JWKS_URL are missing. Admin endpoints will reject every request.")
	}

	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Upload rate limiting is disabled.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("750ms", "2s")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
