// Package sqlstore implements account.Repository with bun.
//
// Accounts live in "accounts"; the ordered session token window lives in
// "account_session_tokens". OpenSQLite wires the sqlite shim driver; any other
// bun dialect works through New once the schema exists.
package sqlstore
