// Command nk-server starts the NoteKeeper gRPC server.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/notekeeper/internal/config"
	"github.com/and161185/notekeeper/internal/crypto"
	"github.com/and161185/notekeeper/internal/gate"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/migrate"
	"github.com/and161185/notekeeper/internal/pagination"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/repository/postgres"
	"github.com/and161185/notekeeper/internal/repository/redisstore"
	grpcserver "github.com/and161185/notekeeper/internal/server/grpc"
	"github.com/and161185/notekeeper/internal/service"
	"github.com/and161185/notekeeper/internal/session"
	"github.com/and161185/notekeeper/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and serves gRPC until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "nk-server:", err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("registry", cfg.Registry),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	logins, closeRegistry, err := loginRegistry(ctx, cfg, db)
	if err != nil {
		logger.Fatal("login registry", zap.Error(err))
	}
	defer closeRegistry()

	codec, err := token.NewCodec([]byte(cfg.TokenKey))
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}
	sessions := session.NewManager(codec, logins,
		session.WithLifetime(cfg.SessionLifetime.Duration, cfg.RefreshWindow.Duration))

	users := postgres.NewUserRepo(db)
	lim := limiter.NewPG(db.Pool, limiter.Config{
		Window:   cfg.LoginWindow.Duration,
		MaxFails: cfg.LoginMaxFails,
		BlockFor: cfg.LoginBlock.Duration,
	})

	authSvc := service.NewAuthService(users, sessions, crypto.NewHasher(crypto.DefaultParams), lim)
	noteSvc := service.NewNoteService(postgres.NewNoteRepo(db), pagination.NewCursors(codec, "notes"))
	userSvc := service.NewUserService(users, pagination.NewCursors(codec, "users"))

	var peers *limiter.Peers
	if cfg.PeerRPS > 0 {
		peers = limiter.NewPeers(cfg.PeerRPS, cfg.PeerBurst, 0)
	}

	opts := []grpc.ServerOption{grpcserver.Interceptors(logger, gate.New(sessions, logger), peers)}
	if !cfg.Insecure {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("serving without TLS")
	}
	s := grpc.NewServer(opts...)

	grpcserver.RegisterNoteKeeperServer(s, grpcserver.New(authSvc, noteSvc, userSvc, sessions, logger))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	if every := cfg.SweepInterval.Duration; every > 0 {
		go runJanitor(ctx, sessions, every, logger)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", !cfg.Insecure))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// loginRegistry picks the configured backend. The returned func releases it.
func loginRegistry(ctx context.Context, cfg config.Config, db *postgres.DB) (repository.LoginRegistry, func(), error) {
	if cfg.Registry != config.RegistryRedis {
		return postgres.NewLoginRepo(db), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return redisstore.NewLoginStore(rdb, "nk", cfg.SessionLifetime.Duration), func() { _ = rdb.Close() }, nil
}
