// revtrust-proofd serves a proof store CAS over gRPC.
//
// Only canonical proof and verdict documents are admitted; arbitrary blobs
// are rejected at the Put boundary.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"revtrust.dev/revtrust/storage"
	"revtrust.dev/revtrust/storage/grpcproof"
	"revtrust.dev/revtrust/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("revtrust-proofd", flag.ExitOnError)

	var listen string
	var storeDir string
	var replicaDir string

	fs.StringVar(&listen, "listen", "127.0.0.1:7777", "Listen address")
	fs.StringVar(&storeDir, "store-dir", "", "Proof store directory (required)")
	fs.StringVar(&replicaDir, "replica-dir", "", "Optional second directory; puts replicate to it, reads fall back")

	_ = fs.Parse(os.Args[1:])

	if storeDir == "" {
		fmt.Fprintln(os.Stderr, "missing --store-dir")
		os.Exit(2)
	}

	primary, err := localfs.New(storeDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}

	var cas storage.CAS = primary
	if replicaDir != "" {
		replica, err := localfs.New(replicaDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open replica: %v\n", err)
			os.Exit(1)
		}
		cas = storage.ReplicatingCAS{Backends: []storage.NamedCAS{
			{Name: "primary", CAS: primary},
			{Name: "replica", CAS: replica},
		}}
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen %s: %v\n", listen, err)
		os.Exit(1)
	}

	s := grpc.NewServer()
	grpcproof.RegisterProofStoreServer(s, &grpcproof.Server{CAS: cas})

	fmt.Fprintf(os.Stderr, "revtrust-proofd listening on %s (store %s)\n", lis.Addr(), storeDir)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(1)
	}
}
