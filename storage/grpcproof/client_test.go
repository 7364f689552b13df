package grpcproof

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"revtrust.dev/revtrust/cidutil"
	"revtrust.dev/revtrust/proof"
	"revtrust.dev/revtrust/storage"
	"revtrust.dev/revtrust/storage/testkit"
)

func newClientServerPair(t *testing.T) (*Client, storage.CAS) {
	t.Helper()

	backing := testkit.NewMemCAS()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterProofStoreServer(srv, &Server{CAS: backing})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///proofstore",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return NewClient(cc), backing
}

func TestClient_PutGetRoundTrip(t *testing.T) {
	client, backing := newClientServerPair(t)
	raw := signedReview(t, 0x91)

	id, err := client.Put(raw)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	wantCID, _ := proof.CID(raw)
	if id.String() != wantCID {
		t.Fatalf("Put CID: got %s want %s", id, wantCID)
	}
	if !backing.Has(id) {
		t.Fatal("server-side store must hold the proof")
	}

	if !client.Has(id) {
		t.Fatal("Has false after Put")
	}
	got, err := client.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatal("Get returned different bytes")
	}
}

func TestClient_PutRejectedByServerGate(t *testing.T) {
	client, _ := newClientServerPair(t)
	if _, err := client.Put([]byte("not a proof")); err == nil {
		t.Fatal("expected server-side rejection of arbitrary bytes")
	}
}

func TestClient_GetUnknownCIDMapsNotFound(t *testing.T) {
	client, _ := newClientServerPair(t)
	id, err := cidutil.CIDv1RawSHA256CID(signedReview(t, 0x92))
	if err != nil {
		t.Fatalf("cid: %v", err)
	}
	if _, err := client.Get(id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if client.Has(id) {
		t.Fatal("Has must be false for unknown CIDs")
	}
}

func TestClient_UndefinedCID(t *testing.T) {
	client, _ := newClientServerPair(t)
	if _, err := client.Get(cid.Undef); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("expected ErrInvalidCID, got %v", err)
	}
	if client.Has(cid.Undef) {
		t.Fatal("Has must be false for the undefined CID")
	}
}
