// Package keys provides signing and key-management helpers.
//
// Stable:
//   - Pure, deterministic primitives for issuer-key formatting, seed
//     derivation, and proof signing.
//
// Experimental:
//   - Filesystem-backed key storage and convenience helpers (KeyStore and
//     related functions). These are local-first utilities and are not part of
//     the long-term protocol contract.
package keys
