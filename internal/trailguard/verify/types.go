package verify

// Hash chain fields added to every sealed alert line.
const (
	FieldPrev  = "chainPrev"
	FieldHash  = "chainHash"
	FieldIndex = "chainIndex"
)

// ChainState stores the rolling head and index so successive exports extend
// one chain.
type ChainState struct {
	LastChainIndex int    `json:"last_chain_index"`
	LastHeadHash   string `json:"last_head_hash"`
}

// VerifySummary is appended to the run log for every seal or check run.
type VerifySummary struct {
	Phase           string `json:"phase"`
	Mode            string `json:"mode"` // "seal" or "check"
	InputFile       string `json:"input_file"`
	OutputFile      string `json:"output_file,omitempty"`
	AlertsProcessed int    `json:"alerts_processed"`
	TamperedAlerts  []int  `json:"tampered_alerts,omitempty"`
	HeadHash        string `json:"head_hash,omitempty"`
	Status          string `json:"status"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
}
