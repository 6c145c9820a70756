// Package auth provides authentication primitives for the gateway API.
//
// It implements:
//   - Argon2id password hashing in PHC string format
//   - Short-lived HS256 JWT access tokens, validated by signature only
//
// The gateway runs with a single admin account configured in the security
// section of the config file, so there is no user database: the login
// handler verifies the configured password hash and issues a token, and
// the API middleware validates tokens with ParseToken.
package auth
