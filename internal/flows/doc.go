// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunUpdate, RunSendConfirmation, RunConfirm,
// RunSendRecovery, RunResetCredential, RunIssueSessionToken, etc.) accepts a
// typed dependency struct and returns results without side-effects beyond
// those dependencies. The confirmation and credential predicates
// (ConfirmationStateOf, CheckConfirmationTransition, InterceptsEmailChange,
// CheckCredentialUpdate, RecoveryInProgress) are exported so the Engine can
// answer state queries without running a flow.
//
// Every mutating flow works on a clone of the account and copies it back only
// after the save callback succeeds. Notifications are sent after the copy-back,
// so a notification failure never hides a persisted change.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the repository, credential hasher,
// notifier, audit dispatcher, and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import jwtAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
