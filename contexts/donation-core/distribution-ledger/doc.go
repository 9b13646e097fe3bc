// Package distributionledger implements the cascading-donation ledger.
//
// Principals register an identifier, donors deposit funds against it, and the
// owner forwards configured basis-point shares of the accumulated pool to
// other identifiers before claiming the remainder. The module owns the ledger
// storage namespace and exposes HTTP handlers plus the outbox-relay worker.
package distributionledger
