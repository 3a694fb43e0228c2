// Package grpc serves the account lifecycle over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/accounts"
	"github.com/dmitrijs2005/chainkeeper/internal/backup"
	"github.com/dmitrijs2005/chainkeeper/internal/capability"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
	"google.golang.org/grpc"
)

// Accounts is the lifecycle surface served over gRPC; *accounts.Manager
// implements it.
type Accounts interface {
	Availability(ctx context.Context, userKey string) (bool, error)
	Create(ctx context.Context, a accounts.NewAccount) (bool, error)
	Lookup(ctx context.Context, userKey string) (*models.Account, error)
	Retrieve(ctx context.Context, userKey string, passKey []byte) (*models.Account, error)
	VerifyIdentity(ctx context.Context, userKey string, passKey []byte) (bool, error)
	ChangePassword(ctx context.Context, userKey string, passKey, newPassKey []byte) (bool, error)
	ChangeUsername(ctx context.Context, userKey string, passKey []byte, newUserKey string) (bool, error)
	ChangeData(ctx context.Context, userKey string, passKey []byte, metaData, sensitiveData models.Data) (bool, error)
	ChangeSensitiveData(ctx context.Context, userKey string, passKey []byte, sensitiveData models.Data) (bool, error)
	ChangeMetaData(ctx context.Context, userKey string, metaData models.Data) (bool, error)
	Remove(ctx context.Context, userKey string, passKey []byte, force bool) (bool, error)
	DeleteAll(ctx context.Context) (bool, error)
}

// Backups exports and restores the account directory.
type Backups interface {
	Export(ctx context.Context) (*backup.ExportResult, error)
	Restore(ctx context.Context, key string) (*backup.RestoreResult, error)
}

type GRPCServer struct {
	wire.UnimplementedAccountServiceServer
	address       string
	accounts      Accounts
	backups       Backups
	master        capability.Master
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
}

// NewGRPCServer builds the account service. backups may be nil, in which
// case the backup methods report codes.Unavailable.
func NewGRPCServer(a string, l logging.Logger, m Accounts, b Backups, master capability.Master, secretKey string, tokenValidity time.Duration) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		accounts:      m,
		backups:       b,
		master:        master,
		jwtSecret:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}
}

// NewServer returns a grpc.Server with the account service and its
// interceptors registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	wire.RegisterAccountServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
