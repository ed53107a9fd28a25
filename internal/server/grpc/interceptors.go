package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/notekeeper/internal/gate"
	"github.com/and161185/notekeeper/internal/limiter"
)

// LoggingUnary logs one line per call: method, code, duration and peer host.
// Server-side failures are logged at warn level.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		lvl := zapcore.InfoLevel
		switch code {
		case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
			lvl = zapcore.WarnLevel
		}
		// metadata only, never payloads
		log.Log(lvl, "grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", limiter.PeerHost(ctx)),
		)
		return resp, err
	}
}

// RecoverUnary turns handler panics into codes.Internal.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// Interceptors chains recovery, logging, the optional per-peer limit on
// public methods and the access gate, in that order.
func Interceptors(log *zap.Logger, g *gate.Gate, peers *limiter.Peers) grpc.ServerOption {
	chain := []grpc.UnaryServerInterceptor{RecoverUnary(log), LoggingUnary(log)}
	if peers != nil {
		chain = append(chain, peers.UnaryInterceptor(PublicMethods()...))
	}
	chain = append(chain, g.UnaryInterceptor(PublicMethods()...))
	return grpc.ChainUnaryInterceptor(chain...)
}
