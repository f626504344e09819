// Package credstore is a self-contained account credential store: it
// creates accounts, authenticates them, runs email-style verification and
// password rotation, and keeps a free-form JSON data blob per account.
//
// Credentials:
//   - Passwords are never stored. Codec derives a PBKDF2-HMAC-SHA256 key
//     over the JSON pair [username, password] with a per-account random salt,
//     so accounts sharing a password still hash differently.
//   - The iteration count has a floor of MinIterations; callers may raise it.
//
// Verification:
//   - An account is UNVERIFIED while it carries a token and the verified
//     flag is false, VERIFIED once Verify consumes the token. Only verified
//     accounts can Login.
//   - Reset issues a new token and revokes verification. Reissue issues a
//     new token and leaves the flag alone.
//   - ChangePassword accepts either the pending token or the current
//     password. Using the current password clears the verified flag.
//
// Storage:
//   - Accounts live in a single bun-backed "accounts" table on sqlite or
//     postgres. Open applies the embedded goose migrations. Multi-step
//     operations run inside one transaction.
//
// Activity sinks:
//   - ActivitySink receives lifecycle events (created, verified, login,
//     token issued, password changed, deleted). Sinks run best-effort and
//     their errors are only logged.
package credstore
