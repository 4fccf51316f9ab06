// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds Flowbase configuration loaded alongside WAFFLE's
// CoreConfig. WAFFLE owns ports, TLS, logging and CORS defaults; everything
// specific to workspaces, accounts and mail lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Signing secret for login, verification, reset and invite tokens.
	JWTSecret     string
	LoginTokenTTL time.Duration

	// Browser session cookie that mirrors the login token.
	SessionKey    string
	SessionName   string
	SessionDomain string

	// FrontendURL is the SPA origin. It is the only CORS origin and the base
	// of every link placed in mail.
	FrontendURL string

	// Email/SMTP configuration. A blank host logs mail instead of sending.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailSMTPSSL  bool
	MailFrom     string
	MailFromName string

	// TrustedProxy takes the client IP from forwarding headers. Leave it off
	// unless a proxy in front of the server sets them.
	TrustedProxy bool

	// OpenWorkspaceJoin lets any signed-in user join a workspace as a member
	// without an invitation.
	OpenWorkspaceJoin bool

	// Per-IP limits for register and reset requests, and for login.
	AuthRateLimit   int
	AuthRateBurst   int
	LoginIPBurst    int
	LoginEmailBurst int

	CleanupInterval time.Duration

	// Audit destinations: all, db, log or off.
	AuditLogAuth      string
	AuditLogWorkspace string

	// Operation deadlines; zero keeps the timeouts package default.
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
