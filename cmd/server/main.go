package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/edulane/school-chat/internal/api"
	"github.com/edulane/school-chat/internal/broker"
	"github.com/edulane/school-chat/internal/chat"
	"github.com/edulane/school-chat/internal/config"
	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/notify"
	"github.com/edulane/school-chat/internal/server"
	"github.com/edulane/school-chat/internal/stats"
	_ "github.com/lib/pq"
)

const defaultSigningKey = "5o0AfRrSUzam3z2sP8CLUod+LH3kRbF4tZNGpdM4nuI="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	smtpAddr       string
	smtpFrom       string
	smtpUsername   string
	smtpPassword   string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&smtpAddr, "smtp-addr", "", "SMTP server address for offline notifications (empty disables)")
	flag.StringVar(&smtpFrom, "smtp-from", "noreply@localhost", "sender address for notification mail")
	flag.StringVar(&smtpUsername, "smtp-username", "", "SMTP username")
	flag.StringVar(&smtpPassword, "smtp-password", "", "SMTP password")
	flag.Parse()

	logger := log.New(os.Stderr, "[school-chat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.SmtpAddr = smtpAddr
	cfg.SmtpFrom = smtpFrom
	cfg.SmtpUsername = smtpUsername
	cfg.SmtpPassword = smtpPassword

	repo, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := repo.Migrate(); err != nil {
		logger.Fatal("db migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	var notifier notify.Notifier
	if cfg.SmtpAddr != "" {
		notifier = notify.NewSmtpNotifier(cfg.SmtpAddr, cfg.SmtpFrom, cfg.SmtpUsername, cfg.SmtpPassword, logger)
	} else {
		notifier = notify.NopNotifier{}
	}

	eventBroker := broker.NewBroker(logger, statsUpdater)
	dir := directory.NewDirectory(repo, logger)
	chatService := chat.NewService(repo, dir, eventBroker, notifier, statsUpdater, logger)
	gateway := server.NewGateway(logger, dir, eventBroker, statsUpdater)

	srv := api.NewChatApp(mux, logger, repo, dir, chatService, gateway, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("closing websocket connections...")
	gateway.Shutdown()

	logger.Println("shutdown complete")
}
