package contract

// TxStatus is the lifecycle of a submitted mint transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TxRecord tracks one submitted transaction. BlockNumber is set once the
// transaction reaches a terminal status.
type TxRecord struct {
	Hash        string
	Status      TxStatus
	BlockNumber uint64
}
