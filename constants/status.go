package constants

// FileOutcome is the canonical terminal state of one source file in a run.
type FileOutcome string

// Stable values (these exact strings appear in logs and summaries).
const (
	OutcomeProcessed FileOutcome = "PROCESSED" // at least one record inserted
	OutcomeDuplicate FileOutcome = "DUPLICATE" // every extracted record already persisted
	OutcomeFailed    FileOutcome = "FAILED"    // extraction or persistence failed
)
