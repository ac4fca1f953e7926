// Package token provides token utilities for BoardMesh.
//
// This package covers random token generation (bearer credentials,
// request ids) and SHA-256 hashing with constant-time verification.
// Tokens are stored hashed; the plaintext bmtk_ form exists only in
// transit and is masked by the logger.
package token
