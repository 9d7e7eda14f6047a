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

	"github.com/taskify/taskify/internal/api"
	"github.com/taskify/taskify/internal/auth"
	"github.com/taskify/taskify/internal/config"
	"github.com/taskify/taskify/internal/database"
	"github.com/taskify/taskify/internal/gateway"
	"github.com/taskify/taskify/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

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
	mongoURI       string
	dbName         string
	signingKey     string
	allowedOrigins stringSliceFlag
	redisAddr      string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "mongodb connection string")
	flag.StringVar(&dbName, "db-name", "taskify", "mongodb database name")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&redisAddr, "redis-addr", "", "redis address for the cross-instance event bridge (optional)")
	flag.Parse()

	logger := log.New(os.Stderr, "[taskify] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, mongoURI, dbName, signingKey, allowedOrigins, redisAddr)
	if err != nil {
		logger.Fatal("config:", err)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	dbConn, err := database.NewMongoTaskifyRepository(connectCtx, cfg.MongoURI, cfg.DatabaseName)
	cancelConnect()
	if err != nil {
		logger.Fatal("db connect:", err)
	}
	defer func() {
		if err := dbConn.Close(context.Background()); err != nil {
			logger.Println("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	gw, err := gateway.NewGateway(logger, dbConn, statsUpdater)
	if err != nil {
		logger.Fatal("new gateway:", err)
	}

	if cfg.RedisAddr != "" {
		bridge, err := gateway.NewBridge(logger, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("new bridge:", err)
		}
		gw.SetBridge(bridge)
	}

	issuer := auth.NewTokenIssuer(cfg.SigningKey, auth.DefaultTokenExpiration)

	srv := api.NewTaskifyApp(mux, logger, gw, dbConn, issuer, cfg)

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

	if err := gw.Shutdown(shutDownCtx); err != nil && err != context.DeadlineExceeded {
		logger.Fatalln("gateway shutdown:", err)
	}

	logger.Println("shutdown complete")
}
