package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SMS providers understood by the service
const (
	SMSProviderFast2SMS = "fast2sms"
	SMSProviderTwilio   = "twilio"
	SMSProviderLog      = "log"
)

// Config holds everything the service reads from the environment
type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	// Database
	DatabaseURL            string
	DBUser                 string
	DBPass                 string
	DBName                 string
	DBHost                 string
	DBPort                 string
	InstanceConnectionName string
	UseMemoryStore         bool

	// Cache
	RedisURL string

	// SMS
	SMSProvider       string
	Fast2SMSKey       string
	Fast2SMSURL       string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	OTPSenderHeader   string
	OTPTemplateID     string

	// Admin
	AdminAPIKey      string
	BrowseSessionTTL time.Duration
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://alilals.com",
	"https://www.alilals.com",
}

// Load resolves the configuration from process environment.
// Call godotenv before this if a .env file should be honoured.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGINS", strings.Join(defaultOrigins, ","))
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "ziraat")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("USE_MEMORY_STORE", false)
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("SMS_PROVIDER", SMSProviderFast2SMS)
	v.SetDefault("FAST2SMS_URL", "https://www.fast2sms.com/dev/bulkV2")
	v.SetDefault("OTP_SENDER_HEADER", "ZIRAAT")
	v.SetDefault("OTP_TEMPLATE_ID", "191100")
	v.SetDefault("BROWSE_SESSION_TTL", "30m")

	// AutomaticEnv only answers Get calls for keys viper already knows about
	for _, key := range []string{
		"DATABASE_URL", "DB_PASS", "INSTANCE_CONNECTION_NAME", "FAST2SMSKEY",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER", "ADMIN_API_KEY",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		Port:                   v.GetString("PORT"),
		Environment:            v.GetString("ENVIRONMENT"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		AllowedOrigins:         splitList(v.GetString("ALLOWED_ORIGINS")),
		DatabaseURL:            v.GetString("DATABASE_URL"),
		DBUser:                 v.GetString("DB_USER"),
		DBPass:                 v.GetString("DB_PASS"),
		DBName:                 v.GetString("DB_NAME"),
		DBHost:                 v.GetString("DB_HOST"),
		DBPort:                 v.GetString("DB_PORT"),
		InstanceConnectionName: v.GetString("INSTANCE_CONNECTION_NAME"),
		UseMemoryStore:         v.GetBool("USE_MEMORY_STORE"),
		RedisURL:               v.GetString("REDIS_URL"),
		SMSProvider:            strings.ToLower(v.GetString("SMS_PROVIDER")),
		Fast2SMSKey:            v.GetString("FAST2SMSKEY"),
		Fast2SMSURL:            v.GetString("FAST2SMS_URL"),
		TwilioAccountSID:       v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:        v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber:      v.GetString("TWILIO_PHONE_NUMBER"),
		OTPSenderHeader:        v.GetString("OTP_SENDER_HEADER"),
		OTPTemplateID:          v.GetString("OTP_TEMPLATE_ID"),
		AdminAPIKey:            v.GetString("ADMIN_API_KEY"),
		BrowseSessionTTL:       v.GetDuration("BROWSE_SESSION_TTL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations that would only fail at request time
func (c *Config) Validate() error {
	switch c.SMSProvider {
	case SMSProviderFast2SMS:
		if c.Fast2SMSKey == "" {
			return fmt.Errorf("FAST2SMSKEY is required when SMS_PROVIDER=%s", SMSProviderFast2SMS)
		}
	case SMSProviderTwilio:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioPhoneNumber == "" {
			return fmt.Errorf("twilio credentials are required when SMS_PROVIDER=%s", SMSProviderTwilio)
		}
	case SMSProviderLog:
	default:
		return fmt.Errorf("unknown SMS_PROVIDER %q", c.SMSProvider)
	}

	if c.BrowseSessionTTL <= 0 {
		return fmt.Errorf("BROWSE_SESSION_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
