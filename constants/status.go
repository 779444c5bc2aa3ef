package constants

// DocStatus is the canonical lifecycle status for rows in documents.
type DocStatus string

// Stable values (store these exact strings in DB).
const (
	StatusQueued     DocStatus = "QUEUED"      // uploaded, waiting for processing
	StatusInProgress DocStatus = "IN_PROGRESS" // run in flight
	StatusExtracted  DocStatus = "EXTRACTED"   // extraction stage completed
	StatusCompleted  DocStatus = "COMPLETED"   // terminal success
	StatusFailed     DocStatus = "FAILED"      // terminal failure
	StatusStopped    DocStatus = "STOPPED"     // terminal, user-cancelled
)

// legalTransitions is the full transition table for the document lifecycle.
// Anything not listed here is illegal and is rejected as a no-op.
var legalTransitions = map[DocStatus][]DocStatus{
	StatusQueued:     {StatusInProgress},
	StatusInProgress: {StatusExtracted, StatusCompleted, StatusFailed, StatusStopped},
	StatusExtracted:  {StatusCompleted, StatusFailed, StatusStopped},
	StatusCompleted:  {},
	StatusFailed:     {StatusQueued}, // retry
	StatusStopped:    {StatusQueued}, // retry
}

// CanTransition reports whether moving from one status to another is legal.
func (s DocStatus) CanTransition(to DocStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends a processing run.
func (s DocStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// Progress marks persisted at each stage boundary of a run.
const (
	ProgressMetadataStart int = 10
	ProgressMetadataDone  int = 20
	ProgressRouted        int = 40
	ProgressExtractStart  int = 50
	ProgressExtractDone   int = 70
	ProgressFinalizing    int = 90
	ProgressDone          int = 100
)
