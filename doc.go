// Package authgate implements a credential-issuing authentication backend:
// it verifies user credentials, issues HS256 bearer tokens, and guards
// admin-only endpoints.
//
// Tokens are stateless JWTs carrying only an expiry, retrofitted with
// server-side revocation: the exact issued string is persisted on the
// account row and a protected request must pass both the cryptographic
// check (Tokenizer) and the equality check against that stored value
// (UserStore). Re-authenticating overwrites the stored token, which is the
// sole revocation mechanism — there is no logout.
//
// The Guard middleware collapses every pre-privilege failure (missing
// header, malformed or expired token, token unknown to the store) into a
// single 401 so callers cannot probe which check failed; a valid token on a
// non-admin account is the one distinguishable rejection (403).
package authgate
