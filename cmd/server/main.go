package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"moonjin/internal/auth"
	"moonjin/internal/config"
	"moonjin/internal/db"
	"moonjin/internal/jobs"
	"moonjin/internal/logging"
	"moonjin/internal/mail"
	"moonjin/internal/newsletter"
	"moonjin/internal/post"
	"moonjin/internal/series"
	"moonjin/internal/server"
	"moonjin/internal/subscribe"
	"moonjin/internal/writer"
)

// Clients tracked by the login limiter before its buckets are dropped.
const maxLimiterClients = 10000

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	database, err := db.Open(cfg.DBPath, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	sqlDB, err := database.DB()
	if err != nil {
		log.WithError(err).Fatal("database handle")
	}
	defer sqlDB.Close()

	seriesSvc := series.NewService(database, log)
	writerSvc := writer.NewService(database, log)
	postSvc := post.NewService(database, seriesSvc, writerSvc, log)
	subs := subscribe.NewService(database, log)
	mailer := mail.New(mail.Options{
		Domain:  cfg.MailgunDomain,
		APIKey:  cfg.MailgunAPIKey,
		APIBase: cfg.MailgunAPIBase,
	}, log)

	srv := server.New(&server.Server{
		Auth:          auth.NewService(database, log),
		Tokens:        auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Posts:         postSvc,
		Series:        seriesSvc,
		Writers:       writerSvc,
		Subscriptions: subs,
		Newsletters:   newsletter.NewService(database, postSvc, subs, writerSvc, seriesSvc, mailer, log),
		DB:            sqlDB,
		Log:           log,
	}, server.Config{
		SecureCookies:  cfg.SecureCookies,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	scheduler := jobs.NewScheduler(log)
	counterSync := jobs.Job{
		Name:     "writer-counter-sync",
		Schedule: cfg.CounterSyncSchedule,
		Timeout:  5 * time.Minute,
		Run:      writerSvc.SynchronizeAll,
	}
	limiterReset := jobs.Job{
		Name:     "rate-limiter-reset",
		Schedule: "@every 10m",
		Run: func(context.Context) error {
			if n := srv.Limiter.Reset(maxLimiterClients); n > 0 {
				log.WithField("clients", n).Info("rate limiter buckets dropped")
			}
			return nil
		},
	}
	for _, job := range []jobs.Job{counterSync, limiterReset} {
		if err := scheduler.Add(job); err != nil {
			log.WithError(err).Fatal("schedule job")
		}
	}
	// counters may have drifted while the process was down
	go scheduler.RunNow(counterSync)
	scheduler.Start()

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", httpServer.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("http server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	scheduler.Stop(ctx)
}
