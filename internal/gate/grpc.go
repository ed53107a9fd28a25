package gate

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryInterceptor authenticates every call except the listed public methods
// (full method names, e.g. "/notekeeper.v1.NoteKeeper/Login").
func (g *Gate) UnaryInterceptor(public ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]struct{}, len(public))
	for _, m := range public {
		open[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if _, ok := open[info.FullMethod]; ok {
			return next(ctx, req)
		}
		s, err := g.Authenticate(ctx, authorizationFromMD(ctx))
		if err != nil {
			return nil, StatusError(err)
		}
		return next(WithSession(ctx, s), req)
	}
}

// StatusError converts an Authenticate error into a gRPC status.
func StatusError(err error) error {
	switch Classify(err) {
	case Unauthorized:
		return status.Error(codes.Unauthenticated, err.Error())
	case Misconfigured:
		return status.Error(codes.Internal, "internal")
	default:
		return status.Error(codes.Unavailable, "unavailable")
	}
}

func authorizationFromMD(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if v != "" {
			return v
		}
	}
	return ""
}
