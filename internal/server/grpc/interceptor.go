package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/server/auth"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const adminKey ctxKey = "admin"

var adminMethods = map[string]struct{}{
	wire.AccountMethod("DeleteAll"):     {},
	wire.AccountMethod("ExportBackup"):  {},
	wire.AccountMethod("RestoreBackup"): {},
}

func requiresAdmin(method string, req interface{}) bool {
	if _, ok := adminMethods[method]; ok {
		return true
	}
	if r, ok := req.(*wire.RemoveRequest); ok && r.Force {
		return true
	}
	return false
}

func isAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey).(bool)
	return v
}

func accessToken(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// accessTokenInterceptor marks calls carrying a valid admin token and
// rejects admin-only calls that do not.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	required := requiresAdmin(info.FullMethod, req)

	token := accessToken(ctx)
	if token == "" {
		if required {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		return handler(ctx, req)
	}

	subject, err := auth.GetSubjectFromToken(token, s.jwtSecret)
	if err == nil && subject == auth.AdminSubject {
		return handler(context.WithValue(ctx, adminKey, true), req)
	}

	if required {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(ctx, req)
}
