package concepts

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Identifier Hierarchy
// --------------------------------------------------------------------------

// Identifier is implemented by all identifier kinds in this package. The
// concrete types are small immutable value types and are safe to copy and
// to use as map keys.
type Identifier interface {
	fmt.Stringer

	// isIdentifier restricts the set of implementations to this package.
	isIdentifier()
}

// ClientID identifies a single client actor instance. FrontendName is stable
// across restarts, Generation is bumped every time the frontend re-registers
// with the cluster. A backend that has seen a higher generation for the same
// frontend will reject the older one with a retired-generation failure.
type ClientID struct {
	FrontendName string
	Generation   uint64
}

func (id ClientID) String() string {
	return fmt.Sprintf("ClientID{frontend=%s, generation=%d}", id.FrontendName, id.Generation)
}

func (ClientID) isIdentifier() {}

// LocalHistoryID identifies a single local history (a chain of transactions)
// created by a client. The Cookie routes all requests of this history to one
// backend shard.
type LocalHistoryID struct {
	Client  ClientID
	History uint64
	Cookie  uint64
}

func (id LocalHistoryID) String() string {
	return fmt.Sprintf("LocalHistoryID{client=%s, history=%d, cookie=%d}", id.Client, id.History, id.Cookie)
}

func (LocalHistoryID) isIdentifier() {}

// TransactionID identifies a single transaction within a local history.
type TransactionID struct {
	History LocalHistoryID
	Txn     uint64
}

func (id TransactionID) String() string {
	return fmt.Sprintf("TransactionID{history=%s, txn=%d}", id.History, id.Txn)
}

func (TransactionID) isIdentifier() {}

// --------------------------------------------------------------------------
// Cookie Extraction
// --------------------------------------------------------------------------

// ExtractCookie returns the shard cookie of a request-routable identifier.
// Only LocalHistoryID and TransactionID can be routed; being handed any
// other identifier kind is a programming error and panics.
func ExtractCookie(id Identifier) uint64 {
	switch v := id.(type) {
	case TransactionID:
		return v.History.Cookie
	case LocalHistoryID:
		return v.Cookie
	default:
		panic(fmt.Sprintf("unhandled identifier %v", id))
	}
}
