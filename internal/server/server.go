// Package server wires the stores, the reminder engine, and the HTTP API
// together.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/calebmorris/wellbeat/internal/backup"
	"github.com/calebmorris/wellbeat/internal/config"
	"github.com/calebmorris/wellbeat/internal/handler"
	"github.com/calebmorris/wellbeat/internal/middleware"
	"github.com/calebmorris/wellbeat/internal/push"
	"github.com/calebmorris/wellbeat/internal/reminder"
	"github.com/calebmorris/wellbeat/internal/remote"
	"github.com/calebmorris/wellbeat/internal/session"
	"github.com/calebmorris/wellbeat/internal/store"
	ws "github.com/calebmorris/wellbeat/internal/websocket"
)

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	manager       *reminder.Manager
	backupManager *backup.Manager

	notificationH  *handler.NotificationHandler
	configH        *handler.ConfigHandler
	questionnaireH *handler.QuestionnaireHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler

	sessions    session.Provider
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New builds the full service graph from configuration.
func New(db *sql.DB, cfg config.Config, sessions session.Provider, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	configStore := store.NewConfigStore(db, logger.With("component", "config_store"))
	notificationStore := store.NewNotificationStore(db)
	completionStore := store.NewCompletionStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)
	backupStore := store.NewBackupStore(db)

	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.PushSubscriber,
	})

	var records remote.RecordStore
	if cfg.RemoteBaseURL != "" {
		records = remote.NewClient(cfg.RemoteBaseURL)
	}

	reminderLogger := logger.With("component", "reminder")
	scheduler := reminder.NewScheduler(pushSvc, subscriptionStore, reminderLogger)
	generator := reminder.NewGenerator(configStore, notificationStore, reminderLogger)
	notifier := ws.NewNotifier(hub, notificationStore, logger.With("component", "notifier"))

	manager := reminder.NewManager(reminder.ManagerConfig{
		ConfigStore:       configStore,
		NotificationStore: notificationStore,
		CompletionStore:   completionStore,
		Generator:         generator,
		Scheduler:         scheduler,
		Records:           records,
		Events:            notifier,
		Interval:          cfg.ReconcileInterval,
		Logger:            reminderLogger,
	})

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			AccessKey: cfg.Backup.S3Access,
			SecretKey: cfg.Backup.S3Secret,
		},
		DBPath:     cfg.DBPath,
		Passphrase: cfg.Backup.Passphrase,
		Interval:   cfg.Backup.Interval,
		Retain:     cfg.Backup.Retain,
	}, db, backupStore, logger.With("component", "backup"))

	return &Server{
		db:             db,
		hub:            hub,
		manager:        manager,
		backupManager:  backupMgr,
		notificationH:  handler.NewNotificationHandler(notificationStore, manager, logger.With("component", "notification_handler")),
		configH:        handler.NewConfigHandler(configStore, manager, logger.With("component", "config_handler")),
		questionnaireH: handler.NewQuestionnaireHandler(manager, completionStore, logger.With("component", "questionnaire_handler")),
		pushH:          handler.NewPushHandler(subscriptionStore, pushSvc, logger.With("component", "push_handler")),
		backupH:        handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		sessions:       sessions,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// Start launches the periodic reconcile loop and, when configured, the
// backup loop.
func (s *Server) Start(ctx context.Context) {
	s.manager.Start(ctx)
	s.backupManager.Start(ctx)
}

// Stop shuts the background loops down and waits for them.
func (s *Server) Stop() {
	s.manager.Stop()
	s.backupManager.Stop()
}

// Manager exposes the reminder manager, mainly for tests.
func (s *Server) Manager() *reminder.Manager {
	return s.manager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)

	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)

	requireUser := middleware.RequireUser(s.sessions)
	logged := middleware.RequestLogger(s.logger.With("component", "http"))
	outerMux.Handle("/api/", requireUser(logged(apiMux)))

	return outerMux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.UserKey, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Reminder engine entry points
	mux.HandleFunc("POST /api/reconcile", s.rateLimitedHandler(s.questionnaireH.Reconcile))
	mux.HandleFunc("POST /api/restart", s.questionnaireH.Restart)
	mux.HandleFunc("POST /api/questionnaires/{type}/complete", s.questionnaireH.Complete)
	mux.HandleFunc("GET /api/questionnaires/{type}/stats", s.questionnaireH.Stats)
	mux.HandleFunc("GET /api/questionnaires/baseline/check", s.questionnaireH.BaselineCheck)

	// Inbox
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("GET /api/notifications/unread-count", s.notificationH.Counts)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)
	mux.HandleFunc("POST /api/notifications/read-by-type", s.notificationH.ReadByType)
	mux.HandleFunc("POST /api/notifications/dismissed", s.notificationH.Dismissed)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.notificationH.Delete)
	mux.HandleFunc("POST /api/notifications/cleanup", s.notificationH.Cleanup)
	mux.HandleFunc("POST /api/notifications/clear-read", s.notificationH.ClearRead)
	mux.HandleFunc("DELETE /api/notifications", s.notificationH.ClearAll)

	// Schedule config
	mux.HandleFunc("GET /api/config", s.configH.Get)
	mux.HandleFunc("PUT /api/config", s.configH.Update)
	mux.HandleFunc("PUT /api/config/period", s.configH.UpdatePeriod)
	mux.HandleFunc("PUT /api/config/type-period", s.configH.UpdateTypePeriod)
	mux.HandleFunc("PUT /api/config/preferred-time", s.configH.UpdatePreferredTime)
	mux.HandleFunc("PUT /api/config/show-in-app", s.configH.UpdateShowInApp)

	// Push subscriptions
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups/run", s.rateLimitedHandler(s.backupH.Run))
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	// Real-time inbox sync
	mux.HandleFunc("GET /api/ws", ws.HandleWebSocket(s.hub))
}
