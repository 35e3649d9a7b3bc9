package models

// UploadStep names one stage of the spreadsheet import pipeline, in order.
type UploadStep string

const (
	UploadStepValidating  UploadStep = "validating"
	UploadStepUploading   UploadStep = "uploading"
	UploadStepParsing     UploadStep = "parsing"
	UploadStepProcessing  UploadStep = "processing"
	UploadStepSyncing     UploadStep = "syncing"
	UploadStepReconciling UploadStep = "reconciling"
	UploadStepComplete    UploadStep = "complete"
	UploadStepPartial     UploadStep = "partial"
	UploadStepError       UploadStep = "error"
)

// UploadProgress is one progress report from the import pipeline. Percent is
// monotonically increasing; terminal steps carry any non-fatal warnings.
type UploadProgress struct {
	Step     UploadStep `json:"step"`
	Percent  int        `json:"percent"`
	Message  string     `json:"message"`
	Warnings []string   `json:"warnings,omitempty"`
}

// UploadReconciliation describes agreement between the parsed rows and the
// sheet's own summary section, when one was present.
type UploadReconciliation struct {
	SheetInvested  float64 `json:"sheet_invested"`
	ParsedInvested float64 `json:"parsed_invested"`
	Matched        bool    `json:"matched"`
}

// UploadResult is the terminal outcome of one spreadsheet import.
type UploadResult struct {
	Success        bool                  `json:"success"`
	Status         UploadStep            `json:"status"` // complete | partial | error
	TotalRows      int                   `json:"total_rows"`
	ValidHoldings  int                   `json:"valid_holdings"`
	SkippedCount   int                   `json:"skipped_count"`
	Warnings       []string              `json:"warnings,omitempty"`
	Reconciliation *UploadReconciliation `json:"reconciliation,omitempty"`
	ErrorMessage   string                `json:"error_message,omitempty"`
}
