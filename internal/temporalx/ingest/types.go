package ingest

const (
	WorkflowName = "markup_ingest"
	ActivityRun  = "markup_ingest_run"

	// ErrTypeStructural tags activity failures that retrying cannot fix.
	ErrTypeStructural = "markup_structural"
)

type Input struct {
	AccountID string `json:"account_id"`
	ModelType string `json:"model_type"`
	Stages    string `json:"stages,omitempty"`
}

type Result struct {
	RunID      string   `json:"run_id"`
	Version    string   `json:"version,omitempty"`
	Status     string   `json:"status"`
	Resolved   int      `json:"resolved"`
	Unresolved int      `json:"unresolved"`
	Inserted   int      `json:"inserted"`
	Activated  int      `json:"activated"`
	Archived   []string `json:"archived,omitempty"`
}
