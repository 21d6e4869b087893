// Package auth authenticates API callers.
//
// MirAIe Core has a single administrator account configured in
// config.yaml (security.admin). Its password is stored as an Argon2id hash
// in PHC string format; a successful login returns an HS256-signed JWT
// access token that protected API routes accept as a bearer token.
//
// Generate a hash for config.yaml with:
//
//	miraie -hash-password
package auth
