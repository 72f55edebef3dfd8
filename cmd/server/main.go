package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visualroutine/internal/alarm"
	"visualroutine/internal/audio"
	"visualroutine/internal/clock"
	"visualroutine/internal/config"
	"visualroutine/internal/database"
	"visualroutine/internal/handlers"
	"visualroutine/internal/notify"
	"visualroutine/internal/progress"
	"visualroutine/internal/reminder"
	"visualroutine/internal/repository"
	"visualroutine/internal/security"
	"visualroutine/internal/service"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	loc, _ := cfg.Location()
	clk := clock.NewSystem(loc)

	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepServices,
		handlers.StepReminders,
		handlers.StepServer,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	startup.SetCurrentStep(handlers.StepMigrations)
	if cfg.MigrationsPath != "" {
		err = db.RunMigrationsFrom(ctx, cfg.MigrationsPath)
	} else {
		err = db.RunMigrations(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	startup.CompleteStep(handlers.StepMigrations)
	log.Println("Migrations completed successfully")

	// Initialize repositories
	startup.SetCurrentStep(handlers.StepServices)
	userRepo := repository.NewUserRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	// Notification sinks
	feed := notify.NewFeed(clk)
	tts := audio.NewTTSService(cfg.AudioPath, cfg.TTSLanguage, cfg.TTSEnabled)
	mailer, err := notify.NewMailer(ctx, cfg.AWSRegion, cfg.SESFromEmail, "Visual Routine", cfg.OAuthRedirectBaseURL, cfg.Debug)
	if err != nil {
		log.Printf("Warning: achievement emails disabled: %v", err)
	}
	var unlockSinks notify.Multi
	unlockSinks = append(unlockSinks, notify.LogSink{}, feed)
	var emailSink *notify.EmailSink
	if mailer != nil && mailer.IsEnabled() {
		emailSink = notify.NewEmailSink(userRepo, mailer)
		unlockSinks = append(unlockSinks, emailSink)
	}

	// Alarms and reminders
	manager := alarm.NewManager(reminderRepo, notify.Multi{notify.LogSink{}, notify.NewSpeechSink(tts, feed)}, clk, alarm.Options{
		ExactCapability: cfg.ExactAlarms,
		SweepInterval:   cfg.SweepInterval,
		Debug:           cfg.Debug,
	})
	scheduler := reminder.NewScheduler(manager, clk, cfg.Debug)

	// Progress pipeline
	rules := progress.NewRuleEngine(achievementRepo, unlockSinks, clk)
	pipeline := progress.NewPipeline(statsRepo, rules, clk, cfg.Debug)

	// Initialize services
	tokens, err := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, clk)
	if err != nil {
		log.Fatalf("Failed to initialize token issuer (set JWT_SECRET): %v", err)
	}
	authService := service.NewAuthService(userRepo, tokens)
	activityService := service.NewActivityService(db, scheduler, pipeline, tts, cfg.Debug)
	progressService := service.NewProgressService(pipeline, achievementRepo)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
	}
	if !cfg.GoogleOAuthEnabled() {
		log.Println("Google sign-in disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	limiter := security.NewRateLimiter(20, time.Minute, clock.NewSystem(time.UTC))
	go limiter.RunCleanup(ctx, 5*time.Minute)

	// Initialize handlers
	mux := handlers.Routes(handlers.Handlers{
		Middleware: handlers.NewMiddleware(authService, limiter),
		Auth:       handlers.NewAuthHandler(authService, oauthProviders, cfg.OAuthRedirectBaseURL, security.NewStateSigner(cfg.JWTSecret)),
		Activities: handlers.NewActivityHandler(activityService),
		Sequences:  handlers.NewSequenceHandler(activityService),
		Progress:   handlers.NewProgressHandler(progressService, feed),
		Account:    handlers.NewAccountHandler(authService, manager, activityService),
		Startup:    startup,
	})
	startup.CompleteStep(handlers.StepServices)

	// Restore persisted reminders and deliver anything missed while stopped
	startup.SetCurrentStep(handlers.StepReminders)
	if err := manager.Start(ctx); err != nil {
		log.Fatalf("Failed to restore reminders: %v", err)
	}
	startup.CompleteStep(handlers.StepReminders)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Logging(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()
	startup.CompleteStep(handlers.StepServer)
	startup.MarkReady()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	manager.Stop()
	activityService.WaitForAudio()
	if emailSink != nil {
		emailSink.Wait()
	}
}
