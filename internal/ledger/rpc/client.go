package rpc

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Client is a ledger.Ledger backed by a remote ledger node.
type Client struct {
	conn   *grpc.ClientConn
	client wire.LedgerServiceClient
}

// Dial connects to the ledger node at endpoint.
func Dial(endpoint string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, client: wire.NewLedgerServiceClient(conn)}, nil
}

// NewClient wraps an existing service client; used in tests.
func NewClient(c wire.LedgerServiceClient) *Client {
	return &Client{client: c}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Transactions(ctx context.Context, address string) ([]ledger.RawTransaction, error) {
	resp, err := c.client.Transactions(ctx, &wire.TransactionsRequest{Address: address})
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]ledger.RawTransaction, 0, len(resp.Transactions))
	for _, tx := range resp.Transactions {
		out = append(out, ledger.RawTransaction{
			ID:        tx.ID,
			Sequence:  tx.Sequence,
			Address:   tx.Address,
			Payload:   tx.Payload,
			CreatedAt: unixNano(tx.CreatedAt),
		})
	}
	return out, nil
}

func (c *Client) Broadcast(ctx context.Context, address string, payload []byte) (ledger.Receipt, error) {
	resp, err := c.client.Broadcast(ctx, &wire.BroadcastRequest{Address: address, Payload: payload})
	if err != nil {
		return ledger.Receipt{}, mapError(err)
	}
	return ledger.Receipt{ID: resp.ID, Sequence: resp.Sequence, Broadcasted: resp.Broadcasted}, nil
}

func (c *Client) PublicKey(ctx context.Context, address string) (string, error) {
	resp, err := c.client.PublicKey(ctx, &wire.PublicKeyRequest{Address: address})
	if err != nil {
		return "", mapError(err)
	}
	return resp.PublicKey, nil
}

func (c *Client) RegisterKey(ctx context.Context, address, publicKey string) error {
	_, err := c.client.RegisterKey(ctx, &wire.RegisterKeyRequest{Address: address, PublicKey: publicKey})
	return mapError(err)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: ledger unavailable: %s", common.ErrLedger, st.Message())
	default:
		return fmt.Errorf("%w: rpc error: %v", common.ErrLedger, err)
	}
}
