package usecase

type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult summarizes a sequential sweep. Failed counts both errors and
// items that ended in a failed status.
type BatchResult struct {
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped,omitempty"`
	Errors    []ItemError `json:"errors,omitempty"`
}

func (b *BatchResult) Fail(id, msg string) {
	b.Failed++
	b.Errors = append(b.Errors, ItemError{ID: id, Error: msg})
}
