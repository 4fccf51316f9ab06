// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/flowbase/internal/app/features/errors"
	healthfeature "github.com/dalemusser/flowbase/internal/app/features/health"
	loginfeature "github.com/dalemusser/flowbase/internal/app/features/login"
	profilefeature "github.com/dalemusser/flowbase/internal/app/features/profile"
	projectsfeature "github.com/dalemusser/flowbase/internal/app/features/projects"
	tasksfeature "github.com/dalemusser/flowbase/internal/app/features/tasks"
	workspacesfeature "github.com/dalemusser/flowbase/internal/app/features/workspaces"
	"github.com/dalemusser/flowbase/internal/app/services/accounts"
	invitesvc "github.com/dalemusser/flowbase/internal/app/services/invitations"
	projectsvc "github.com/dalemusser/flowbase/internal/app/services/projects"
	tasksvc "github.com/dalemusser/flowbase/internal/app/services/tasks"
	workspacesvc "github.com/dalemusser/flowbase/internal/app/services/workspaces"
	"github.com/dalemusser/flowbase/internal/app/store/activity"
	"github.com/dalemusser/flowbase/internal/app/store/audit"
	commentstore "github.com/dalemusser/flowbase/internal/app/store/comments"
	"github.com/dalemusser/flowbase/internal/app/store/emailverify"
	invitationstore "github.com/dalemusser/flowbase/internal/app/store/invitations"
	projectstore "github.com/dalemusser/flowbase/internal/app/store/projects"
	taskstore "github.com/dalemusser/flowbase/internal/app/store/tasks"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/auditlog"
	"github.com/dalemusser/flowbase/internal/app/system/auth"
	"github.com/dalemusser/flowbase/internal/app/system/mailer"
	"github.com/dalemusser/flowbase/internal/app/system/metrics"
	"github.com/dalemusser/flowbase/internal/app/system/ratelimit"
	"github.com/dalemusser/flowbase/internal/app/system/tokens"
	"github.com/dalemusser/flowbase/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// BuildHandler constructs the clients once, injects them into the services
// and mounts every feature router under /api-v1.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	issuer, err := tokens.NewIssuer(appCfg.JWTSecret, "flowbase")
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}

	mail, err := newMailer(appCfg, logger)
	if err != nil {
		logger.Error("mailer init failed", zap.Error(err))
		return nil, err
	}

	users := userstore.New(db)
	workspaces := workspacestore.New(db)
	invitations := invitationstore.New(db)
	projects := projectstore.New(db)
	tasks := taskstore.New(db)
	comments := commentstore.New(db)
	activities := activity.New(db)
	tx := txn.New(deps.MongoClient, logger)

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.LoginTokenTTL, secure, issuer, users, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	accountSvc := accounts.New(accounts.Deps{
		Users:         users,
		Verifications: emailverify.New(db),
		Tokens:        issuer,
		Mail:          mail,
		FrontendURL:   appCfg.FrontendURL,
		LoginTTL:      appCfg.LoginTokenTTL,
		Log:           logger,
	})
	workspaceSvc := workspacesvc.New(workspacesvc.Deps{
		Workspaces:  workspaces,
		Users:       users,
		Projects:    projects,
		Tasks:       tasks,
		Comments:    comments,
		Invitations: invitations,
		Activity:    activities,
		Tx:          tx,
		Log:         logger,
	})
	inviteSvc := invitesvc.New(invitesvc.Deps{
		Workspaces:  workspaces,
		Users:       users,
		Invitations: invitations,
		Activity:    activities,
		Tokens:      issuer,
		Mail:        mail,
		FrontendURL: appCfg.FrontendURL,
		OpenJoin:    appCfg.OpenWorkspaceJoin,
		Log:         logger,
	})
	projectSvc := projectsvc.New(projectsvc.Deps{
		Workspaces: workspaces,
		Projects:   projects,
		Tasks:      tasks,
		Comments:   comments,
		Activity:   activities,
		Tx:         tx,
		Log:        logger,
	})
	taskSvc := tasksvc.New(tasksvc.Deps{
		Workspaces: workspaces,
		Projects:   projects,
		Tasks:      tasks,
		Comments:   comments,
		Activity:   activities,
		Tx:         tx,
		Log:        logger,
	})

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:      appCfg.AuditLogAuth,
		Workspace: appCfg.AuditLogWorkspace,
	})
	m := metrics.New()

	// Refill auth_rate_limit tokens per minute with room for auth_rate_burst.
	authLimiter := ratelimit.New(appCfg.AuthRateBurst,
		time.Duration(appCfg.AuthRateBurst)*time.Minute/time.Duration(appCfg.AuthRateLimit))
	loginLimiter := ratelimit.NewLoginLimiter(appCfg.LoginIPBurst, appCfg.LoginEmailBurst)
	if deps.bg != nil {
		deps.bg.onShutdown(authLimiter.Stop)
		deps.bg.onShutdown(loginLimiter.Stop)
	}

	r := chi.NewRouter()
	if appCfg.TrustedProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appCfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// Loads the caller from the bearer token or session cookie when present.
	r.Use(sessionMgr.LoadUser)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	client := deps.MongoClient
	healthHandler := healthfeature.NewHandler(healthfeature.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}), logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	r.Route("/api-v1", func(api chi.Router) {
		api.NotFound(errorsfeature.NotFound)
		api.MethodNotAllowed(errorsfeature.MethodNotAllowed)

		loginHandler := loginfeature.NewHandler(accountSvc, sessionMgr, loginLimiter, auditLog, m, logger)
		api.Mount("/auth", loginfeature.Routes(loginHandler, authLimiter))

		profileHandler := profilefeature.NewHandler(accountSvc, auditLog, logger)
		api.Mount("/users", profilefeature.Routes(profileHandler))

		wsHandler := workspacesfeature.NewHandler(workspaceSvc, inviteSvc, auditLog, m, logger)
		api.Mount("/workspaces", workspacesfeature.Routes(wsHandler))

		projectsHandler := projectsfeature.NewHandler(projectSvc, logger)
		api.Mount("/projects", projectsfeature.Routes(projectsHandler))

		tasksHandler := tasksfeature.NewHandler(taskSvc, logger)
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler))
	})

	return r, nil
}

// newMailer returns the SMTP sender, or a sender that only logs when no
// relay host is configured.
func newMailer(appCfg AppConfig, logger *zap.Logger) (mailer.Sender, error) {
	if appCfg.MailSMTPHost == "" {
		logger.Warn("mail_smtp_host is empty; mail will be logged, not sent")
		return mailer.LogSender{Log: logger}, nil
	}
	return mailer.NewSMTP(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		SSL:      appCfg.MailSMTPSSL,
	}, logger)
}
