// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/flowbase/internal/app/system/tokens"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for Flowbase. Each key can
// come from a config file (mongo_uri), the environment (FLOWBASE_MONGO_URI)
// or a flag (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "flowbase", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "jwt_secret", Default: devSecret, Desc: "HMAC secret for signed tokens (at least 32 bytes)"},
	{Name: "login_token_ttl", Default: "24h", Desc: "Lifetime of a login token (e.g., 24h, 90m)"},

	{Name: "session_key", Default: devSecret, Desc: "Session cookie signing key (must be strong in production)"},
	{Name: "session_name", Default: "flowbase-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "frontend_url", Default: "http://localhost:5173", Desc: "Frontend origin used for CORS and mail links"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead of sending; required in prod)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_smtp_ssl", Default: false, Desc: "Use implicit TLS for SMTP (port 465)"},
	{Name: "mail_from", Default: "noreply@flowbase.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Flowbase", Desc: "From display name"},

	{Name: "trusted_proxy", Default: false, Desc: "Take the client IP from X-Forwarded-For/X-Real-IP (only behind a trusted proxy)"},

	{Name: "open_workspace_join", Default: false, Desc: "Allow joining any workspace without an invitation"},

	// Rate limiting
	{Name: "auth_rate_limit", Default: 10, Desc: "Register and reset requests per minute per IP"},
	{Name: "auth_rate_burst", Default: 5, Desc: "Burst size for register and reset requests"},
	{Name: "login_ip_burst", Default: 10, Desc: "Login attempts per minute per IP"},
	{Name: "login_email_burst", Default: 5, Desc: "Login attempts per five minutes per account"},

	{Name: "cleanup_interval", Default: "1m", Desc: "How often expired invitations and verifications are purged"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_workspace", Default: "all", Desc: "Workspace event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_ping", Default: "", Desc: "Database ping deadline"},
	{Name: "timeout_short", Default: "", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "", Desc: "Deadline for list and aggregate operations"},
	{Name: "timeout_long", Default: "", Desc: "Deadline for cascades and index builds"},
}

// LoadConfig loads WAFFLE core config and the Flowbase keys. Precedence is
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FLOWBASE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:     appValues.String("jwt_secret"),
		LoginTokenTTL: appValues.Duration("login_token_ttl", 24*time.Hour),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		FrontendURL: strings.TrimRight(appValues.String("frontend_url"), "/"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailSMTPSSL:  appValues.Bool("mail_smtp_ssl"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		TrustedProxy: appValues.Bool("trusted_proxy"),

		OpenWorkspaceJoin: appValues.Bool("open_workspace_join"),

		AuthRateLimit:   appValues.Int("auth_rate_limit"),
		AuthRateBurst:   appValues.Int("auth_rate_burst"),
		LoginIPBurst:    appValues.Int("login_ip_burst"),
		LoginEmailBurst: appValues.Int("login_email_burst"),

		CleanupInterval: appValues.Duration("cleanup_interval", time.Minute),

		AuditLogAuth:      appValues.String("audit_log_auth"),
		AuditLogWorkspace: appValues.String("audit_log_workspace"),

		TimeoutPing:   appValues.Duration("timeout_ping", 0),
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configuration that would fail later or run
// insecurely. The development secrets are refused in prod.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return errors.New("mongo_database is required")
	}
	if len(appCfg.JWTSecret) < tokens.MinSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d bytes", tokens.MinSecretLength)
	}
	if len(appCfg.SessionKey) < 32 {
		return errors.New("session_key must be at least 32 bytes")
	}
	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.JWTSecret == devSecret {
			return errors.New("jwt_secret must be set in production")
		}
		if appCfg.SessionKey == devSecret {
			return errors.New("session_key must be set in production")
		}
		if appCfg.MailSMTPHost == "" {
			return errors.New("mail_smtp_host must be set in production")
		}
	}
	u, err := url.Parse(appCfg.FrontendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("frontend_url must be an absolute URL, got %q", appCfg.FrontendURL)
	}
	if appCfg.LoginTokenTTL <= 0 {
		return errors.New("login_token_ttl must be positive")
	}
	if appCfg.CleanupInterval <= 0 {
		return errors.New("cleanup_interval must be positive")
	}
	if appCfg.AuthRateLimit < 1 || appCfg.AuthRateBurst < 1 {
		return errors.New("auth_rate_limit and auth_rate_burst must be at least 1")
	}
	for name, v := range map[string]string{
		"audit_log_auth":      appCfg.AuditLogAuth,
		"audit_log_workspace": appCfg.AuditLogWorkspace,
	} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", name, v)
		}
	}
	return nil
}
