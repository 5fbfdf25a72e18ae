package types

// ScanEvent carries either a discovered account or the terminal error of a
// discovery stream.
type ScanEvent struct {
	Account *Account
	Err     error
}

// SyncEvent carries either an account patch or the terminal error of a
// synchronization attempt.
type SyncEvent struct {
	Patch Patch
	Err   error
}

type BroadcastEventType int

const (
	TxSigned BroadcastEventType = iota
	TxBroadcasted
)

func (e BroadcastEventType) String() string {
	return map[BroadcastEventType]string{
		TxSigned:      "SIGNED",
		TxBroadcasted: "BROADCASTED",
	}[e]
}

type BroadcastEvent struct {
	Type      BroadcastEventType
	Operation *Operation
	Err       error
}

// TxState is a step of the sign and broadcast pipeline.
type TxState int

const (
	TxDraft TxState = iota
	TxPrepared
	TxValidated
	TxAwaitingSignature
	TxStateSigned
	TxBroadcasting
	TxStateBroadcasted
	TxCancelled
	TxFailed
)

func (s TxState) String() string {
	return map[TxState]string{
		TxDraft:             "DRAFT",
		TxPrepared:          "PREPARED",
		TxValidated:         "VALIDATED",
		TxAwaitingSignature: "AWAITING_SIGNATURE",
		TxStateSigned:       "SIGNED",
		TxBroadcasting:      "BROADCASTING",
		TxStateBroadcasted:  "BROADCASTED",
		TxCancelled:         "CANCELLED",
		TxFailed:            "FAILED",
	}[s]
}
