package model

// ContractRecord is the registry's unit of state for one tracked contract
// document across its revision history. It is keyed by the document's base
// name (without extension).
type ContractRecord struct {
	ID                 string             `json:"id"`
	FilePath           string             `json:"file_path"`
	ContentHash        string             `json:"hash"`
	Date               string             `json:"date,omitempty"`
	LastUpdated        string             `json:"last_updated,omitempty"`
	Jurisdiction       string             `json:"jurisdiction,omitempty"`
	Status             string             `json:"status"`
	Version            int                `json:"version"`
	SnapshotText       string             `json:"snapshot_text,omitempty"`
	ArchivedPaths      []string           `json:"archived_paths,omitempty"`
	LatestUpdateReport string             `json:"latest_update_report,omitempty"`
	RegulatoryStatus   string             `json:"regulatory_status,omitempty"`
	AgeStatus          string             `json:"age_status,omitempty"`
	Proposals          []Proposal         `json:"regulatory_proposals,omitempty"`
	AppliedAmendments  []AppliedAmendment `json:"applied_amendments,omitempty"`
	AutoApply          bool               `json:"auto_apply,omitempty"`
	ApplyErrors        []string           `json:"apply_errors,omitempty"`
}

// Proposal is a generated, not-yet-applied suggested amendment tied to one
// contract/regulation pair.
type Proposal struct {
	ContractID   string   `json:"contract_id"`
	RegID        string   `json:"reg_id"`
	Risk         int      `json:"risk"`
	Matches      []string `json:"matches,omitempty"`
	AmendmentTxt string   `json:"amendment_txt"`
	AmendmentDoc string   `json:"amendment_doc,omitempty"`
	Status       string   `json:"status"`
	Timestamp    string   `json:"timestamp"`
}

// AppliedAmendment is one entry in the ordered log of amendments a contract
// has had applied.
type AppliedAmendment struct {
	RegID        string `json:"reg_id"`
	AppliedAt    string `json:"applied_at"`
	NewFilePath  string `json:"new_file"`
	ArchivedPath string `json:"archived,omitempty"`
	Version      int    `json:"version"`
}

// Contract status constants
const (
	StatusActive   = "Active"
	StatusArchived = "Archived"
)

// Regulatory status constants, ordered by severity
const (
	RegStatusOK          = "OK"
	RegStatusMonitor     = "Monitor"
	RegStatusNeedsUpdate = "Needs Update"
	RegStatusHighRisk    = "High Risk"
)

// Age bucket constants
const (
	AgeUpTo1Year = "Up to 1 year"
	Age1To3Years = "1-3 years"
	Age3To6Years = "3-6 years"
	Age6Plus     = "6+ years"
	AgeUnknown   = "Unknown"
)

// Proposal status constants
const (
	ProposalSuggested = "suggested"
	ProposalApplied   = "applied"
)

// RegulatoryRank returns the severity rank of a regulatory status. Higher is
// more severe; unknown values rank lowest so any recomputed status replaces
// them.
func RegulatoryRank(status string) int {
	switch status {
	case RegStatusHighRisk:
		return 3
	case RegStatusNeedsUpdate:
		return 2
	case RegStatusMonitor:
		return 1
	case RegStatusOK:
		return 0
	default:
		return -1
	}
}
