package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const AccountServiceName = "chainkeeper.accounts.AccountService"

// Account is the caller-facing view of an account. SensitiveData is only
// filled by password-gated reads.
type Account struct {
	AccountID     string         `cbor:"account_id"`
	UserKey       string         `cbor:"user_key"`
	MetaData      map[string]any `cbor:"meta_data"`
	SensitiveData map[string]any `cbor:"sensitive_data"`
}

type UserKeyRequest struct {
	UserKey string `cbor:"user_key"`
}

// CredentialsRequest carries an optional password; a nil PassKey asks for a
// metadata-only read.
type CredentialsRequest struct {
	UserKey string  `cbor:"user_key"`
	PassKey *string `cbor:"pass_key"`
}

type CreateRequest struct {
	UserKey       string         `cbor:"user_key"`
	PassKey       string         `cbor:"pass_key"`
	MetaData      map[string]any `cbor:"meta_data"`
	SensitiveData map[string]any `cbor:"sensitive_data"`
}

type ChangePasswordRequest struct {
	UserKey    string `cbor:"user_key"`
	PassKey    string `cbor:"pass_key"`
	NewPassKey string `cbor:"new_pass_key"`
}

type ChangeUsernameRequest struct {
	UserKey    string `cbor:"user_key"`
	PassKey    string `cbor:"pass_key"`
	NewUserKey string `cbor:"new_user_key"`
}

// ChangeDataRequest serves ChangeData, ChangeSensitiveData and
// ChangeMetaData; each method reads only the fields it changes.
type ChangeDataRequest struct {
	UserKey       string         `cbor:"user_key"`
	PassKey       string         `cbor:"pass_key"`
	MetaData      map[string]any `cbor:"meta_data"`
	SensitiveData map[string]any `cbor:"sensitive_data"`
}

type RemoveRequest struct {
	UserKey string  `cbor:"user_key"`
	PassKey *string `cbor:"pass_key"`
	Force   bool    `cbor:"force"`
}

type BoolResponse struct {
	OK bool `cbor:"ok"`
}

type AccountResponse struct {
	Account *Account `cbor:"account"`
}

type AdminLoginRequest struct {
	Address string `cbor:"address"`
	Secret  string `cbor:"secret"`
}

type AdminLoginResponse struct {
	AccessToken string `cbor:"access_token"`
}

type ExportBackupResponse struct {
	Key      string `cbor:"key"`
	URL      string `cbor:"url"`
	Accounts int    `cbor:"accounts"`
}

type RestoreBackupRequest struct {
	Key string `cbor:"key"`
}

type RestoreBackupResponse struct {
	Restored int `cbor:"restored"`
	Skipped  int `cbor:"skipped"`
}

type PingResponse struct {
	Status string `cbor:"status"`
}

type AccountServiceServer interface {
	Availability(context.Context, *UserKeyRequest) (*BoolResponse, error)
	Create(context.Context, *CreateRequest) (*BoolResponse, error)
	Lookup(context.Context, *UserKeyRequest) (*AccountResponse, error)
	Retrieve(context.Context, *CredentialsRequest) (*AccountResponse, error)
	VerifyIdentity(context.Context, *CredentialsRequest) (*BoolResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*BoolResponse, error)
	ChangeUsername(context.Context, *ChangeUsernameRequest) (*BoolResponse, error)
	ChangeData(context.Context, *ChangeDataRequest) (*BoolResponse, error)
	ChangeSensitiveData(context.Context, *ChangeDataRequest) (*BoolResponse, error)
	ChangeMetaData(context.Context, *ChangeDataRequest) (*BoolResponse, error)
	Remove(context.Context, *RemoveRequest) (*BoolResponse, error)
	AdminLogin(context.Context, *AdminLoginRequest) (*AdminLoginResponse, error)
	DeleteAll(context.Context, *Empty) (*BoolResponse, error)
	ExportBackup(context.Context, *Empty) (*ExportBackupResponse, error)
	RestoreBackup(context.Context, *RestoreBackupRequest) (*RestoreBackupResponse, error)
	Ping(context.Context, *Empty) (*PingResponse, error)
}

// UnimplementedAccountServiceServer can be embedded for forward compatibility.
type UnimplementedAccountServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedAccountServiceServer) Availability(context.Context, *UserKeyRequest) (*BoolResponse, error) {
	return nil, unimplemented("Availability")
}
func (UnimplementedAccountServiceServer) Create(context.Context, *CreateRequest) (*BoolResponse, error) {
	return nil, unimplemented("Create")
}
func (UnimplementedAccountServiceServer) Lookup(context.Context, *UserKeyRequest) (*AccountResponse, error) {
	return nil, unimplemented("Lookup")
}
func (UnimplementedAccountServiceServer) Retrieve(context.Context, *CredentialsRequest) (*AccountResponse, error) {
	return nil, unimplemented("Retrieve")
}
func (UnimplementedAccountServiceServer) VerifyIdentity(context.Context, *CredentialsRequest) (*BoolResponse, error) {
	return nil, unimplemented("VerifyIdentity")
}
func (UnimplementedAccountServiceServer) ChangePassword(context.Context, *ChangePasswordRequest) (*BoolResponse, error) {
	return nil, unimplemented("ChangePassword")
}
func (UnimplementedAccountServiceServer) ChangeUsername(context.Context, *ChangeUsernameRequest) (*BoolResponse, error) {
	return nil, unimplemented("ChangeUsername")
}
func (UnimplementedAccountServiceServer) ChangeData(context.Context, *ChangeDataRequest) (*BoolResponse, error) {
	return nil, unimplemented("ChangeData")
}
func (UnimplementedAccountServiceServer) ChangeSensitiveData(context.Context, *ChangeDataRequest) (*BoolResponse, error) {
	return nil, unimplemented("ChangeSensitiveData")
}
func (UnimplementedAccountServiceServer) ChangeMetaData(context.Context, *ChangeDataRequest) (*BoolResponse, error) {
	return nil, unimplemented("ChangeMetaData")
}
func (UnimplementedAccountServiceServer) Remove(context.Context, *RemoveRequest) (*BoolResponse, error) {
	return nil, unimplemented("Remove")
}
func (UnimplementedAccountServiceServer) AdminLogin(context.Context, *AdminLoginRequest) (*AdminLoginResponse, error) {
	return nil, unimplemented("AdminLogin")
}
func (UnimplementedAccountServiceServer) DeleteAll(context.Context, *Empty) (*BoolResponse, error) {
	return nil, unimplemented("DeleteAll")
}
func (UnimplementedAccountServiceServer) ExportBackup(context.Context, *Empty) (*ExportBackupResponse, error) {
	return nil, unimplemented("ExportBackup")
}
func (UnimplementedAccountServiceServer) RestoreBackup(context.Context, *RestoreBackupRequest) (*RestoreBackupResponse, error) {
	return nil, unimplemented("RestoreBackup")
}
func (UnimplementedAccountServiceServer) Ping(context.Context, *Empty) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}

var AccountServiceDesc = grpc.ServiceDesc{
	ServiceName: AccountServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AccountServiceName, "Availability", AccountServiceServer.Availability),
		unary(AccountServiceName, "Create", AccountServiceServer.Create),
		unary(AccountServiceName, "Lookup", AccountServiceServer.Lookup),
		unary(AccountServiceName, "Retrieve", AccountServiceServer.Retrieve),
		unary(AccountServiceName, "VerifyIdentity", AccountServiceServer.VerifyIdentity),
		unary(AccountServiceName, "ChangePassword", AccountServiceServer.ChangePassword),
		unary(AccountServiceName, "ChangeUsername", AccountServiceServer.ChangeUsername),
		unary(AccountServiceName, "ChangeData", AccountServiceServer.ChangeData),
		unary(AccountServiceName, "ChangeSensitiveData", AccountServiceServer.ChangeSensitiveData),
		unary(AccountServiceName, "ChangeMetaData", AccountServiceServer.ChangeMetaData),
		unary(AccountServiceName, "Remove", AccountServiceServer.Remove),
		unary(AccountServiceName, "AdminLogin", AccountServiceServer.AdminLogin),
		unary(AccountServiceName, "DeleteAll", AccountServiceServer.DeleteAll),
		unary(AccountServiceName, "ExportBackup", AccountServiceServer.ExportBackup),
		unary(AccountServiceName, "RestoreBackup", AccountServiceServer.RestoreBackup),
		unary(AccountServiceName, "Ping", AccountServiceServer.Ping),
	},
}

func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}

// AccountMethod returns the full gRPC method name of an AccountService method.
func AccountMethod(name string) string {
	return "/" + AccountServiceName + "/" + name
}

type AccountServiceClient interface {
	Availability(ctx context.Context, in *UserKeyRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	Lookup(ctx context.Context, in *UserKeyRequest, opts ...grpc.CallOption) (*AccountResponse, error)
	Retrieve(ctx context.Context, in *CredentialsRequest, opts ...grpc.CallOption) (*AccountResponse, error)
	VerifyIdentity(ctx context.Context, in *CredentialsRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	ChangeUsername(ctx context.Context, in *ChangeUsernameRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	ChangeData(ctx context.Context, in *ChangeDataRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	ChangeSensitiveData(ctx context.Context, in *ChangeDataRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	ChangeMetaData(ctx context.Context, in *ChangeDataRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	Remove(ctx context.Context, in *RemoveRequest, opts ...grpc.CallOption) (*BoolResponse, error)
	AdminLogin(ctx context.Context, in *AdminLoginRequest, opts ...grpc.CallOption) (*AdminLoginResponse, error)
	DeleteAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*BoolResponse, error)
	ExportBackup(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ExportBackupResponse, error)
	RestoreBackup(ctx context.Context, in *RestoreBackupRequest, opts ...grpc.CallOption) (*RestoreBackupResponse, error)
	Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error)
}

type accountServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAccountServiceClient(cc grpc.ClientConnInterface) AccountServiceClient {
	return &accountServiceClient{cc: cc}
}

func call[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := invoke(ctx, cc, AccountMethod(method), in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) Availability(ctx context.Context, in *UserKeyRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "Availability", in, opts)
}
func (c *accountServiceClient) Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "Create", in, opts)
}
func (c *accountServiceClient) Lookup(ctx context.Context, in *UserKeyRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return call[AccountResponse](ctx, c.cc, "Lookup", in, opts)
}
func (c *accountServiceClient) Retrieve(ctx context.Context, in *CredentialsRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return call[AccountResponse](ctx, c.cc, "Retrieve", in, opts)
}
func (c *accountServiceClient) VerifyIdentity(ctx context.Context, in *CredentialsRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "VerifyIdentity", in, opts)
}
func (c *accountServiceClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "ChangePassword", in, opts)
}
func (c *accountServiceClient) ChangeUsername(ctx context.Context, in *ChangeUsernameRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "ChangeUsername", in, opts)
}
func (c *accountServiceClient) ChangeData(ctx context.Context, in *ChangeDataRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "ChangeData", in, opts)
}
func (c *accountServiceClient) ChangeSensitiveData(ctx context.Context, in *ChangeDataRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "ChangeSensitiveData", in, opts)
}
func (c *accountServiceClient) ChangeMetaData(ctx context.Context, in *ChangeDataRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "ChangeMetaData", in, opts)
}
func (c *accountServiceClient) Remove(ctx context.Context, in *RemoveRequest, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "Remove", in, opts)
}
func (c *accountServiceClient) AdminLogin(ctx context.Context, in *AdminLoginRequest, opts ...grpc.CallOption) (*AdminLoginResponse, error) {
	return call[AdminLoginResponse](ctx, c.cc, "AdminLogin", in, opts)
}
func (c *accountServiceClient) DeleteAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*BoolResponse, error) {
	return call[BoolResponse](ctx, c.cc, "DeleteAll", in, opts)
}
func (c *accountServiceClient) ExportBackup(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ExportBackupResponse, error) {
	return call[ExportBackupResponse](ctx, c.cc, "ExportBackup", in, opts)
}
func (c *accountServiceClient) RestoreBackup(ctx context.Context, in *RestoreBackupRequest, opts ...grpc.CallOption) (*RestoreBackupResponse, error) {
	return call[RestoreBackupResponse](ctx, c.cc, "RestoreBackup", in, opts)
}
func (c *accountServiceClient) Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*PingResponse, error) {
	return call[PingResponse](ctx, c.cc, "Ping", in, opts)
}
