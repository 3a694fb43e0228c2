// Package rpc exposes a ledger.Ledger over gRPC and provides the matching
// client, so the accounts server can run against a remote ledger node.
package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	wire.UnimplementedLedgerServiceServer
	address string
	store   ledger.Ledger
	logger  logging.Logger
}

func NewServer(address string, store ledger.Ledger, l logging.Logger) *Server {
	return &Server{
		address: address,
		store:   store,
		logger:  l.With("module", "ledger_rpc"),
	}
}

// Register attaches the ledger service to an existing grpc server.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	wire.RegisterLedgerServiceServer(r, s)
}

func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	s.Register(srv)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping ledger gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting ledger gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *Server) toStatus(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	s.logger.Error(ctx, "ledger operation failed", "op", op, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *Server) Transactions(ctx context.Context, req *wire.TransactionsRequest) (*wire.TransactionsResponse, error) {
	txs, err := s.store.Transactions(ctx, req.Address)
	if err != nil {
		return nil, s.toStatus(ctx, "transactions", err)
	}

	out := make([]wire.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, wire.Transaction{
			ID:        tx.ID,
			Sequence:  tx.Sequence,
			Address:   tx.Address,
			Payload:   tx.Payload,
			CreatedAt: tx.CreatedAt.UnixNano(),
		})
	}
	return &wire.TransactionsResponse{Transactions: out}, nil
}

func (s *Server) Broadcast(ctx context.Context, req *wire.BroadcastRequest) (*wire.BroadcastResponse, error) {
	if req.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "address is required")
	}

	r, err := s.store.Broadcast(ctx, req.Address, req.Payload)
	if err != nil {
		return nil, s.toStatus(ctx, "broadcast", err)
	}

	s.logger.Debug(ctx, "transaction appended", "address", req.Address, "seq", r.Sequence)
	return &wire.BroadcastResponse{ID: r.ID, Sequence: r.Sequence, Broadcasted: r.Broadcasted}, nil
}

func (s *Server) PublicKey(ctx context.Context, req *wire.PublicKeyRequest) (*wire.PublicKeyResponse, error) {
	key, err := s.store.PublicKey(ctx, req.Address)
	if err != nil {
		return nil, s.toStatus(ctx, "public_key", err)
	}
	return &wire.PublicKeyResponse{PublicKey: key}, nil
}

func (s *Server) RegisterKey(ctx context.Context, req *wire.RegisterKeyRequest) (*wire.Empty, error) {
	if req.Address == "" || req.PublicKey == "" {
		return nil, status.Error(codes.InvalidArgument, "address and public key are required")
	}

	if err := s.store.RegisterKey(ctx, req.Address, req.PublicKey); err != nil {
		return nil, s.toStatus(ctx, "register_key", err)
	}

	s.logger.Info(ctx, "public key registered", "address", req.Address)
	return &wire.Empty{}, nil
}

func unixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
