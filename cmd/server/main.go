package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/sgea/event-attendance/internal/config"
	"github.com/sgea/event-attendance/internal/database"
	"github.com/sgea/event-attendance/internal/handler"
	"github.com/sgea/event-attendance/internal/middleware"
	"github.com/sgea/event-attendance/internal/notify"
	"github.com/sgea/event-attendance/internal/queue"
	"github.com/sgea/event-attendance/internal/repository"
	"github.com/sgea/event-attendance/internal/router"
	"github.com/sgea/event-attendance/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	events := repository.NewEventRepo(db)
	regs := repository.NewRegistrationRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	audits := repository.NewAuditRepo(db)
	tx := repository.NewTxRunner(db)

	// Services.
	publisher := notify.NewPublisher(cfg.RabbitURL)
	audit := service.NewAudit(audits, cfg.AuditBackupDir)
	catalog := service.NewCatalog(events, regs, audit, publisher, tx)
	ledger := service.NewLedger(events, regs, users, audit, publisher)
	certifier := service.NewCertifier(events, regs, audit, publisher)

	// Notification consumer: delivers queued notifications over SMTP
	// when configured, or to the outbox log otherwise.
	var mailer queue.Mailer
	smtp := &notify.SMTPMailer{
		Host: cfg.SMTPHost, Port: cfg.SMTPPort,
		Username: cfg.SMTPUser, Password: cfg.SMTPPass, From: cfg.SMTPFrom,
	}
	if smtp.Configured() {
		mailer = smtp
	}
	go func() {
		if err := queue.StartConsumer(cfg.RabbitURL, mailer); err != nil {
			log.Printf("notify consumer stopped: %v", err)
		}
	}()

	// Redis is optional: without it the limiter and cache switch off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Event:        handler.NewEventHandler(catalog),
		Registration: handler.NewRegistrationHandler(ledger),
		Attendance:   handler.NewAttendanceHandler(certifier),
		Audit:        handler.NewAuditHandler(audit),
	}, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
