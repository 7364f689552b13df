package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"revtrust.dev/revtrust/cidutil"
)

// NamedCAS pairs a backend with a stable name, so publication results can be
// reported per destination (a local store, a replica, a remote proofd).
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS is a publication sink: every Put is written through to all
// backends, and a write only succeeds once each backend stored the bytes under
// the same canonical CID. Reads take the first backend that has the object.
//
// revtrust-proofd uses this for its --replica-dir; PutAll exposes the
// per-backend addresses when a caller wants to audit the fan-out.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = (*ReplicatingCAS)(nil)

// PutAll publishes bytes to every backend and reports where they landed.
// The first return is the canonical CID derived locally; the map holds each
// backend's answer. A backend answering with a different CID fails the
// publication with ErrCIDMismatch.
func (r ReplicatingCAS) PutAll(data []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidCID
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("storage: ReplicatingCAS has no backends")
	}

	landed := make(map[string]cid.Cid, len(r.Backends))
	for _, backend := range r.Backends {
		if backend.CAS == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil CAS for backend %q", backend.Name)
		}
		got, err := backend.CAS.Put(data)
		if err != nil {
			return cid.Undef, nil, err
		}
		landed[backend.Name] = got
		if got != want {
			return cid.Undef, landed, ErrCIDMismatch
		}
	}
	return want, landed, nil
}

func (r ReplicatingCAS) Put(data []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(data)
	return id, err
}

// Get returns the object from the first backend holding it. Errors other than
// not-found abort the scan; a half-broken backend should surface, not be
// papered over by a replica.
func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	for _, backend := range r.Backends {
		if backend.CAS == nil {
			continue
		}
		data, err := backend.CAS.Get(id)
		switch {
		case err == nil:
			return data, nil
		case IsNotFound(err):
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, backend := range r.Backends {
		if backend.CAS != nil && backend.CAS.Has(id) {
			return true
		}
	}
	return false
}
