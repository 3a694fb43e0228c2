// Package client talks to the accounts server over gRPC and maps its status
// codes to sentinel errors.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      wire.AccountServiceClient

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if t := s.token(); t != "" {
		ctx = withAccessToken(ctx, t)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewAccountsClient(endpointURL string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor))
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = wire.NewAccountServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.FailedPrecondition:
		return common.ErrConfiguration
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (s *GRPCClient) boolCall(ctx context.Context, call func(ctx context.Context) (*wire.BoolResponse, error)) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := call(ctx)
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.OK, nil
}

func (s *GRPCClient) accountCall(ctx context.Context, call func(ctx context.Context) (*wire.AccountResponse, error)) (*wire.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := call(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	if resp.Account == nil {
		return nil, common.ErrorNotFound
	}
	return resp.Account, nil
}

func (s *GRPCClient) Available(ctx context.Context, userKey string) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.Availability(ctx, &wire.UserKeyRequest{UserKey: userKey})
	})
}

func (s *GRPCClient) Register(ctx context.Context, userKey, passKey string, metaData, sensitiveData map[string]any) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.Create(ctx, &wire.CreateRequest{
			UserKey:       userKey,
			PassKey:       passKey,
			MetaData:      metaData,
			SensitiveData: sensitiveData,
		})
	})
}

func (s *GRPCClient) Lookup(ctx context.Context, userKey string) (*wire.Account, error) {
	return s.accountCall(ctx, func(ctx context.Context) (*wire.AccountResponse, error) {
		return s.client.Lookup(ctx, &wire.UserKeyRequest{UserKey: userKey})
	})
}

func (s *GRPCClient) Retrieve(ctx context.Context, userKey, passKey string) (*wire.Account, error) {
	return s.accountCall(ctx, func(ctx context.Context) (*wire.AccountResponse, error) {
		return s.client.Retrieve(ctx, &wire.CredentialsRequest{UserKey: userKey, PassKey: &passKey})
	})
}

func (s *GRPCClient) Verify(ctx context.Context, userKey, passKey string) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.VerifyIdentity(ctx, &wire.CredentialsRequest{UserKey: userKey, PassKey: &passKey})
	})
}

func (s *GRPCClient) ChangePassword(ctx context.Context, userKey, passKey, newPassKey string) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.ChangePassword(ctx, &wire.ChangePasswordRequest{UserKey: userKey, PassKey: passKey, NewPassKey: newPassKey})
	})
}

func (s *GRPCClient) ChangeUsername(ctx context.Context, userKey, passKey, newUserKey string) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.ChangeUsername(ctx, &wire.ChangeUsernameRequest{UserKey: userKey, PassKey: passKey, NewUserKey: newUserKey})
	})
}

func (s *GRPCClient) ChangeMetaData(ctx context.Context, userKey, passKey string, metaData map[string]any) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.ChangeMetaData(ctx, &wire.ChangeDataRequest{UserKey: userKey, PassKey: passKey, MetaData: metaData})
	})
}

func (s *GRPCClient) ChangeSensitiveData(ctx context.Context, userKey, passKey string, sensitiveData map[string]any) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.ChangeSensitiveData(ctx, &wire.ChangeDataRequest{UserKey: userKey, PassKey: passKey, SensitiveData: sensitiveData})
	})
}

// Remove deletes an account. With force the password is not sent and an
// admin login is required.
func (s *GRPCClient) Remove(ctx context.Context, userKey, passKey string, force bool) (bool, error) {
	req := &wire.RemoveRequest{UserKey: userKey, Force: force}
	if !force {
		req.PassKey = &passKey
	}
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.Remove(ctx, req)
	})
}

// AdminLogin exchanges the master identity for an admin token that is sent
// with every later call.
func (s *GRPCClient) AdminLogin(ctx context.Context, address, secret string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.AdminLogin(ctx, &wire.AdminLoginRequest{Address: address, Secret: secret})
	if err != nil {
		return s.mapError(err)
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.mu.Unlock()
	return nil
}

func (s *GRPCClient) IsAdmin() bool {
	return s.token() != ""
}

func (s *GRPCClient) DeleteAll(ctx context.Context) (bool, error) {
	return s.boolCall(ctx, func(ctx context.Context) (*wire.BoolResponse, error) {
		return s.client.DeleteAll(ctx, &wire.Empty{})
	})
}

func (s *GRPCClient) ExportBackup(ctx context.Context) (*wire.ExportBackupResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := s.client.ExportBackup(ctx, &wire.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) RestoreBackup(ctx context.Context, key string) (*wire.RestoreBackupResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	resp, err := s.client.RestoreBackup(ctx, &wire.RestoreBackupRequest{Key: key})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, &wire.Empty{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}
