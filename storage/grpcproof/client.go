package grpcproof

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"revtrust.dev/revtrust/cidutil"
	"revtrust.dev/revtrust/storage"
)

// Client is a storage.CAS backed by a remote ProofStore service.
//
// The server enforces proof admission on Put; the client re-derives every CID
// locally, so a misbehaving server can neither hand back foreign bytes nor
// claim a wrong address for published ones.
type Client struct {
	conn *grpc.ClientConn
	rpc  ProofStoreClient

	// Timeout bounds each RPC when non-zero.
	Timeout time.Duration
}

var _ storage.CAS = (*Client)(nil)

// NewClient wraps an established connection. The caller keeps ownership of cc;
// Close is a no-op for clients built this way.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: NewProofStoreClient(cc)}
}

type DialOptions struct {
	// Timeout bounds each RPC when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send and receive message limits when non-zero.
	MaxMsgBytes int
}

// Dial connects to a revtrust-proofd endpoint. The connection is plaintext;
// proofs are self-authenticating, transport privacy is out of scope here.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
			grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
		))
	}

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c := NewClient(cc)
	c.conn = cc
	c.Timeout = opts.Timeout
	return c, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Put(data []byte) (cid.Cid, error) {
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}

	ctx, cancel := c.callContext()
	defer cancel()
	reply, err := c.rpc.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, mapRPC(err)
	}

	got, err := cid.Decode(reply.GetValue())
	if err != nil || !got.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}
	if got != want {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return got, nil
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}

	ctx, cancel := c.callContext()
	defer cancel()
	reply, err := c.rpc.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}

	data := reply.GetValue()
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

func (c *Client) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}

	ctx, cancel := c.callContext()
	defer cancel()
	reply, err := c.rpc.Has(ctx, wrapperspb.String(id.String()))
	return err == nil && reply.GetValue()
}

func (c *Client) callContext() (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(context.Background(), c.Timeout)
	}
	return context.WithCancel(context.Background())
}
