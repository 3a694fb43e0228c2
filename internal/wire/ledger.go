package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const LedgerServiceName = "chainkeeper.ledger.LedgerService"

type Empty struct{}

type Transaction struct {
	ID        string `cbor:"id"`
	Sequence  uint64 `cbor:"seq"`
	Address   string `cbor:"address"`
	Payload   []byte `cbor:"payload"`
	CreatedAt int64  `cbor:"created_at"`
}

type TransactionsRequest struct {
	Address string `cbor:"address"`
}

type TransactionsResponse struct {
	Transactions []Transaction `cbor:"transactions"`
}

type BroadcastRequest struct {
	Address string `cbor:"address"`
	Payload []byte `cbor:"payload"`
}

type BroadcastResponse struct {
	ID          string `cbor:"id"`
	Sequence    uint64 `cbor:"seq"`
	Broadcasted bool   `cbor:"broadcasted"`
}

type PublicKeyRequest struct {
	Address string `cbor:"address"`
}

type PublicKeyResponse struct {
	PublicKey string `cbor:"public_key"`
}

type RegisterKeyRequest struct {
	Address   string `cbor:"address"`
	PublicKey string `cbor:"public_key"`
}

// LedgerServiceServer is implemented by the ledger node.
type LedgerServiceServer interface {
	Transactions(context.Context, *TransactionsRequest) (*TransactionsResponse, error)
	Broadcast(context.Context, *BroadcastRequest) (*BroadcastResponse, error)
	PublicKey(context.Context, *PublicKeyRequest) (*PublicKeyResponse, error)
	RegisterKey(context.Context, *RegisterKeyRequest) (*Empty, error)
}

// UnimplementedLedgerServiceServer can be embedded for forward compatibility.
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) Transactions(context.Context, *TransactionsRequest) (*TransactionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Transactions not implemented")
}
func (UnimplementedLedgerServiceServer) Broadcast(context.Context, *BroadcastRequest) (*BroadcastResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Broadcast not implemented")
}
func (UnimplementedLedgerServiceServer) PublicKey(context.Context, *PublicKeyRequest) (*PublicKeyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PublicKey not implemented")
}
func (UnimplementedLedgerServiceServer) RegisterKey(context.Context, *RegisterKeyRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterKey not implemented")
}

var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: LedgerServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(LedgerServiceName, "Transactions", LedgerServiceServer.Transactions),
		unary(LedgerServiceName, "Broadcast", LedgerServiceServer.Broadcast),
		unary(LedgerServiceName, "PublicKey", LedgerServiceServer.PublicKey),
		unary(LedgerServiceName, "RegisterKey", LedgerServiceServer.RegisterKey),
	},
}

func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

type LedgerServiceClient interface {
	Transactions(ctx context.Context, in *TransactionsRequest, opts ...grpc.CallOption) (*TransactionsResponse, error)
	Broadcast(ctx context.Context, in *BroadcastRequest, opts ...grpc.CallOption) (*BroadcastResponse, error)
	PublicKey(ctx context.Context, in *PublicKeyRequest, opts ...grpc.CallOption) (*PublicKeyResponse, error)
	RegisterKey(ctx context.Context, in *RegisterKeyRequest, opts ...grpc.CallOption) (*Empty, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

func (c *ledgerServiceClient) Transactions(ctx context.Context, in *TransactionsRequest, opts ...grpc.CallOption) (*TransactionsResponse, error) {
	out := new(TransactionsResponse)
	if err := invoke(ctx, c.cc, "/"+LedgerServiceName+"/Transactions", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) Broadcast(ctx context.Context, in *BroadcastRequest, opts ...grpc.CallOption) (*BroadcastResponse, error) {
	out := new(BroadcastResponse)
	if err := invoke(ctx, c.cc, "/"+LedgerServiceName+"/Broadcast", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) PublicKey(ctx context.Context, in *PublicKeyRequest, opts ...grpc.CallOption) (*PublicKeyResponse, error) {
	out := new(PublicKeyResponse)
	if err := invoke(ctx, c.cc, "/"+LedgerServiceName+"/PublicKey", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) RegisterKey(ctx context.Context, in *RegisterKeyRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := invoke(ctx, c.cc, "/"+LedgerServiceName+"/RegisterKey", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
