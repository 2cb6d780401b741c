// internal/model/operation.go
package model

// OperationType represents one kind of terminal output operation
type OperationType string

const (
	OperationClear      OperationType = "clear"
	OperationHome       OperationType = "home"
	OperationBeep       OperationType = "beep"
	OperationNewLine    OperationType = "newline"
	OperationMove       OperationType = "move"
	OperationText       OperationType = "text"
	OperationTextAt     OperationType = "text_at"
	OperationRepeat     OperationType = "repeat"
	OperationFormat     OperationType = "format"
	OperationShowCursor OperationType = "show_cursor"
	OperationHideCursor OperationType = "hide_cursor"
)

// BatchOperation is one step of a page-painting batch. Only the fields
// relevant to the operation type are read; the rest stay at their zero
// values.
type BatchOperation struct {
	Type   OperationType `json:"type" binding:"required"`
	Row    int           `json:"row,omitempty"`
	Col    int           `json:"col,omitempty"`
	Text   string        `json:"text,omitempty"`
	Char   string        `json:"char,omitempty"`
	Count  int           `json:"count,omitempty"`
	Format string        `json:"format,omitempty"`
}

// BatchResult reports how far a batch got before stopping. FailedAt is
// the zero-based index of the operation whose error ended the pass.
type BatchResult struct {
	Total    int    `json:"total"`
	Executed int    `json:"executed"`
	FailedAt *int   `json:"failed_at,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded checks if every operation of the batch was dispatched
func (r *BatchResult) Succeeded() bool {
	return r.FailedAt == nil
}
