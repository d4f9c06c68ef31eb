// Package matrix implements the scanner transport on top of the Matrix
// client-server API using mautrix.
//
// # Channels
//
// Source channels and the destination are rooms, given either as room IDs
// ("!abc:example.org") or aliases ("#jobs:example.org"). Aliases are resolved
// once and remembered.
//
// # Authentication
//
// With an access token the transport calls /whoami to confirm the session.
// Without one it logs in with username and password and keeps the issued
// device credentials on the client.
//
// # Encryption
//
// When encryption is enabled (or a recovery key is configured) the mautrix
// cryptohelper is attached to the client with a SQLite store in the data
// directory, and a background /sync loop keeps room keys flowing. Encrypted
// history events are decrypted before they are returned.
//
// # Rate limits
//
// mautrix's automatic retries are disabled. An M_LIMIT_EXCEEDED response to
// a publish becomes *transport.FloodWaitError carrying retry_after_ms.
package matrix
