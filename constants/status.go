package constants

// PageStatus is the per-page outcome recorded in the extraction summary.
type PageStatus string

const (
	PageStatusSuccess PageStatus = "SUCCESS" // at least one row extracted
	PageStatusEmpty   PageStatus = "EMPTY"   // all strategies yielded zero rows
	PageStatusError   PageStatus = "ERROR"   // permanent failure on this page
)

// DocumentState tracks the orchestrator's state machine per document.
type DocumentState string

const (
	DocSelecting  DocumentState = "SELECTING"
	DocAttempting DocumentState = "ATTEMPTING"
	DocSucceeded  DocumentState = "SUCCEEDED"
	DocExhausted  DocumentState = "EXHAUSTED"
)

// MergeMode selects the Master Dataset Merger semantics.
type MergeMode string

const (
	// MergeAppend adds records as-is; key collisions are tolerated.
	MergeAppend MergeMode = "append"
	// MergeUpdate replaces every (brand, year, month) triple present in the
	// incoming records wholesale.
	MergeUpdate MergeMode = "update"
)

// ParseMergeMode maps a config string onto a MergeMode, defaulting to append.
func ParseMergeMode(s string) MergeMode {
	if MergeMode(s) == MergeUpdate {
		return MergeUpdate
	}
	return MergeAppend
}
