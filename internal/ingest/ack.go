package ingest

import "fmt"

// AckDecision tells the webhook handler how to answer Telegram. Telegram
// redelivers an update until it gets a 2xx, so AckRetry is the only decision
// that maps to a non-2xx status.
type AckDecision int

const (
	// AckOK acknowledges the update; processing finished or the failure is
	// final and redelivery would not help.
	AckOK AckDecision = iota
	// AckProcessing acknowledges the update while work continues; a
	// concurrent attempt already owns it.
	AckProcessing
	// AckRetry asks Telegram to redeliver after a transient failure.
	AckRetry
)

func (d AckDecision) String() string {
	switch d {
	case AckOK:
		return "ok"
	case AckProcessing:
		return "processing"
	case AckRetry:
		return "retry"
	default:
		return fmt.Sprintf("AckDecision(%d)", int(d))
	}
}
