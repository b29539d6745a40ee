package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/advisorflow/scheduling-agent/internal/collab"
	"github.com/advisorflow/scheduling-agent/internal/config"
	"github.com/advisorflow/scheduling-agent/internal/linkstore"
	"github.com/advisorflow/scheduling-agent/internal/middleware"
	"github.com/advisorflow/scheduling-agent/internal/orchestrator"
	"github.com/advisorflow/scheduling-agent/internal/portal"
	"github.com/advisorflow/scheduling-agent/internal/store"

	_ "time/tzdata"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := store.Open(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repos := store.NewRepositories(db)

	sweeper := store.NewLinkSweeper(db, 15*time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}
	secretsClient := secretsmanager.NewFromConfig(awsCfg)
	s3Client := s3.NewFromConfig(awsCfg)

	secrets := collab.NewSecretsManagerStore(secretsClient)
	rawEmails := collab.NewS3RawEmailObjectStore(s3Client, cfg.AWS.RawEmailBucket)
	mailer := collab.SMTPMailer{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.FromAddress,
		FromName: cfg.Email.FromName,
	}

	var llm collab.LlmClient
	if cfg.AWS.LlmEndpoint != "" {
		apiKey := ""
		if cfg.AWS.LlmAPIKeySecretName != "" {
			if resolved, err := secrets.GetSecret(context.Background(), cfg.AWS.LlmAPIKeySecretName); err == nil {
				apiKey = resolved
			} else {
				log.Printf("Could not resolve LLM API key secret: %v", err)
			}
		}
		llm = collab.HTTPLlmClient{Endpoint: cfg.AWS.LlmEndpoint, APIKey: apiKey}
	}

	var intentLlm collab.IntentExtractor
	if cfg.Scheduling.IntentExtractionMode == "llm_hybrid" && cfg.AWS.LlmEndpoint != "" {
		apiKey := ""
		if cfg.AWS.LlmAPIKeySecretName != "" {
			if resolved, err := secrets.GetSecret(context.Background(), cfg.AWS.LlmAPIKeySecretName); err == nil {
				apiKey = resolved
			}
		}
		intentLlm = collab.HTTPLlmClient{Endpoint: cfg.AWS.LlmEndpoint, APIKey: apiKey}
	}

	links := linkstore.NewStore(repos.Link, 16)

	var legacyCodec *linkstore.Codec
	if cfg.AWS.SigningSecretName != "" {
		if resolved, err := secrets.GetSecret(context.Background(), cfg.AWS.SigningSecretName); err == nil {
			codec := linkstore.NewCodec([]byte(resolved))
			legacyCodec = &codec
		} else {
			log.Printf("Could not resolve legacy token signing secret: %v", err)
		}
	}

	advisingWeekdays := make(map[time.Weekday]bool, len(cfg.Scheduling.AdvisingWeekdays))
	for _, wd := range cfg.Scheduling.AdvisingWeekdays {
		advisingWeekdays[wd] = true
	}

	env := orchestrator.Env{
		FallbackTimezone:          cfg.App.DefaultTimezone,
		DefaultDurationMinutes:    cfg.Scheduling.DefaultDurationMinutes,
		MaxDurationMinutes:        cfg.Scheduling.MaxDurationMinutes,
		AdvisingWeekdays:          advisingWeekdays,
		WorkdayStartMinutes:       cfg.Scheduling.WorkdayStartMinutes,
		WorkdayEndMinutes:         cfg.Scheduling.WorkdayEndMinutes,
		SlotMinutes:               cfg.Scheduling.SlotMinutes,
		MaxGridCells:              cfg.Scheduling.MaxGridCells,
		SearchDays:                cfg.Scheduling.SearchDays,
		MaxSuggestions:            cfg.Scheduling.MaxSuggestions,
		LinkTTL:                   cfg.Scheduling.LinkTTL,
		IdempotencyTTL:            cfg.Scheduling.IdempotencyTTL,
		SenderEmail:               cfg.Email.FromAddress,
		SenderName:                cfg.Email.FromName,
		BaseURL:                   cfg.Server.BaseURL,
		ResponseMode:              cfg.Scheduling.ResponseMode,
		IntentExtractionMode:      cfg.Scheduling.IntentExtractionMode,
		IntentConfidenceThreshold: cfg.Scheduling.IntentConfidenceThreshold,
	}

	connectionTokenSecretName := func(advisorID string) string {
		conn, err := repos.Connection.GetByAdvisorAndProvider(context.Background(), advisorID, "google")
		if err != nil || conn == nil {
			return ""
		}
		return conn.TokenSecretName
	}
	connectionCalendarID := func(advisorID string) (string, bool) {
		conn, err := repos.Connection.GetByAdvisorAndProvider(context.Background(), advisorID, "google")
		if err != nil || conn == nil {
			return "", false
		}
		return conn.RemoteCalendarID, true
	}

	googleCalendar := collab.GoogleCalendarProvider{
		Secrets:         secrets,
		CalendarID:      connectionCalendarID,
		TokenSecretName: connectionTokenSecretName,
	}
	googleMeetings := collab.GoogleClientMeetingsProvider{
		Secrets:         secrets,
		CalendarID:      connectionCalendarID,
		TokenSecretName: connectionTokenSecretName,
	}

	collaborators := orchestrator.Collaborators{
		Calendar:  googleCalendar,
		Meetings:  googleMeetings,
		Mailer:    mailer,
		Llm:       llm,
		IntentLlm: intentLlm,
		RawEmails: rawEmails,
		Links:     links,
		KV:        repos.KeyValue,
		Traces:    traceStoreAdapter{repo: repos.Trace},
		Clients:   clientProfileAdapter{repo: repos.Client},
		Advisors:  advisorProfileAdapter{repo: repos.Advisor},
		Policies:  policyAdapter{repo: repos.Policy},
	}

	router := portal.NewRouter(portal.Deps{
		Env:           env,
		Collaborators: collaborators,
		Links:         links,
		LegacyCodec:   legacyCodec,
		ResolveMode:   func(advisorID string) portal.AuthMode { return portal.AuthNone },
	})

	handler := middleware.Chain(
		router,
		middleware.Logger,
		middleware.Recover,
		middleware.RequestID,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
