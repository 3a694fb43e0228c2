package grpc

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/dmitrijs2005/chainkeeper/internal/accounts"
	"github.com/dmitrijs2005/chainkeeper/internal/backup"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
	"github.com/dmitrijs2005/chainkeeper/internal/server/auth"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrConfiguration):
		return status.Error(codes.FailedPrecondition, "server is not configured")
	case errors.Is(err, common.ErrorValidation), errors.Is(err, backup.ErrBadBackup):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	s.logger.Error(ctx, "request failed", "op", op, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) boolResult(ctx context.Context, op string, ok bool, err error) (*wire.BoolResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, op, err)
	}
	return &wire.BoolResponse{OK: ok}, nil
}

func (s *GRPCServer) accountResult(ctx context.Context, op string, a *models.Account, err error) (*wire.AccountResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, op, err)
	}
	return &wire.AccountResponse{Account: toWire(a)}, nil
}

func toWire(a *models.Account) *wire.Account {
	return &wire.Account{
		AccountID:     a.AccountID,
		UserKey:       a.UserKey,
		MetaData:      a.MetaData,
		SensitiveData: a.Secrets,
	}
}

// optionalPassKey keeps the nil/empty distinction: nil asks for a
// metadata-only read, an empty password is an invalid one.
func optionalPassKey(p *string) []byte {
	if p == nil {
		return nil
	}
	b := make([]byte, len(*p))
	copy(b, *p)
	return b
}

func (s *GRPCServer) Availability(ctx context.Context, req *wire.UserKeyRequest) (*wire.BoolResponse, error) {
	ok, err := s.accounts.Availability(ctx, req.UserKey)
	return s.boolResult(ctx, "availability", ok, err)
}

func (s *GRPCServer) Create(ctx context.Context, req *wire.CreateRequest) (*wire.BoolResponse, error) {
	s.logger.Info(ctx, "Registration request", "user_key", req.UserKey)

	ok, err := s.accounts.Create(ctx, accounts.NewAccount{
		UserKey:       req.UserKey,
		PassKey:       []byte(req.PassKey),
		MetaData:      req.MetaData,
		SensitiveData: req.SensitiveData,
	})
	return s.boolResult(ctx, "create", ok, err)
}

func (s *GRPCServer) Lookup(ctx context.Context, req *wire.UserKeyRequest) (*wire.AccountResponse, error) {
	a, err := s.accounts.Lookup(ctx, req.UserKey)
	return s.accountResult(ctx, "lookup", a, err)
}

func (s *GRPCServer) Retrieve(ctx context.Context, req *wire.CredentialsRequest) (*wire.AccountResponse, error) {
	a, err := s.accounts.Retrieve(ctx, req.UserKey, optionalPassKey(req.PassKey))
	return s.accountResult(ctx, "retrieve", a, err)
}

func (s *GRPCServer) VerifyIdentity(ctx context.Context, req *wire.CredentialsRequest) (*wire.BoolResponse, error) {
	ok, err := s.accounts.VerifyIdentity(ctx, req.UserKey, optionalPassKey(req.PassKey))
	return s.boolResult(ctx, "verify_identity", ok, err)
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *wire.ChangePasswordRequest) (*wire.BoolResponse, error) {
	ok, err := s.accounts.ChangePassword(ctx, req.UserKey, []byte(req.PassKey), []byte(req.NewPassKey))
	return s.boolResult(ctx, "change_password", ok, err)
}

func (s *GRPCServer) ChangeUsername(ctx context.Context, req *wire.ChangeUsernameRequest) (*wire.BoolResponse, error) {
	ok, err := s.accounts.ChangeUsername(ctx, req.UserKey, []byte(req.PassKey), req.NewUserKey)
	return s.boolResult(ctx, "change_username", ok, err)
}

func (s *GRPCServer) ChangeData(ctx context.Context, req *wire.ChangeDataRequest) (*wire.BoolResponse, error) {
	ok, err := s.accounts.ChangeData(ctx, req.UserKey, []byte(req.PassKey), req.MetaData, req.SensitiveData)
	return s.boolResult(ctx, "change_data", ok, err)
}

func (s *GRPCServer) ChangeSensitiveData(ctx context.Context, req *wire.ChangeDataRequest) (*wire.BoolResponse, error) {
	ok, err := s.accounts.ChangeSensitiveData(ctx, req.UserKey, []byte(req.PassKey), req.SensitiveData)
	return s.boolResult(ctx, "change_sensitive_data", ok, err)
}

// ChangeMetaData needs no password from an admin. Other callers must prove
// identity first.
func (s *GRPCServer) ChangeMetaData(ctx context.Context, req *wire.ChangeDataRequest) (*wire.BoolResponse, error) {
	if !isAdmin(ctx) {
		ok, err := s.accounts.VerifyIdentity(ctx, req.UserKey, []byte(req.PassKey))
		if err != nil || !ok {
			return s.boolResult(ctx, "change_meta_data", false, err)
		}
	}
	ok, err := s.accounts.ChangeMetaData(ctx, req.UserKey, req.MetaData)
	return s.boolResult(ctx, "change_meta_data", ok, err)
}

func (s *GRPCServer) Remove(ctx context.Context, req *wire.RemoveRequest) (*wire.BoolResponse, error) {
	ok, err := s.accounts.Remove(ctx, req.UserKey, optionalPassKey(req.PassKey), req.Force)
	return s.boolResult(ctx, "remove", ok, err)
}

func (s *GRPCServer) AdminLogin(ctx context.Context, req *wire.AdminLoginRequest) (*wire.AdminLoginResponse, error) {
	if !s.master.Configured() {
		return nil, status.Error(codes.FailedPrecondition, "server is not configured")
	}

	addrOK := subtle.ConstantTimeCompare([]byte(req.Address), []byte(s.master.Address)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.master.SecretKey)) == 1
	if !addrOK || !secretOK {
		s.logger.Warn(ctx, "admin login rejected", "address", req.Address)
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	token, err := auth.GenerateToken(auth.AdminSubject, s.master.Address, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, s.toStatus(ctx, "admin_login", err)
	}

	s.logger.Info(ctx, "admin logged in", "address", req.Address)
	return &wire.AdminLoginResponse{AccessToken: token}, nil
}

func (s *GRPCServer) DeleteAll(ctx context.Context, _ *wire.Empty) (*wire.BoolResponse, error) {
	ok, err := s.accounts.DeleteAll(ctx)
	return s.boolResult(ctx, "delete_all", ok, err)
}

func (s *GRPCServer) ExportBackup(ctx context.Context, _ *wire.Empty) (*wire.ExportBackupResponse, error) {
	if s.backups == nil {
		return nil, status.Error(codes.Unavailable, "backups are not configured")
	}
	res, err := s.backups.Export(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, "export_backup", err)
	}
	return &wire.ExportBackupResponse{Key: res.Key, URL: res.URL, Accounts: res.Accounts}, nil
}

func (s *GRPCServer) RestoreBackup(ctx context.Context, req *wire.RestoreBackupRequest) (*wire.RestoreBackupResponse, error) {
	if s.backups == nil {
		return nil, status.Error(codes.Unavailable, "backups are not configured")
	}
	res, err := s.backups.Restore(ctx, req.Key)
	if err != nil {
		return nil, s.toStatus(ctx, "restore_backup", err)
	}
	return &wire.RestoreBackupResponse{Restored: res.Restored, Skipped: res.Skipped}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *wire.Empty) (*wire.PingResponse, error) {
	return &wire.PingResponse{Status: "OK"}, nil
}
