package models

type BulkOp string

const (
	BulkOpDelta BulkOp = "delta"
	BulkOpReset BulkOp = "reset"
)

// BulkUpdateRequest applies Delta to every eligible record, or forces every
// eligible balance to zero when ResetToZero is set.
type BulkUpdateRequest struct {
	Delta       int64  `json:"delta,omitempty"`
	ResetToZero bool   `json:"reset_to_zero,omitempty"`
	Secret      string `json:"secret"`
}

func (r BulkUpdateRequest) Op() BulkOp {
	if r.ResetToZero {
		return BulkOpReset
	}
	return BulkOpDelta
}

type BulkUpdateResult struct {
	UpdatedCount int64  `json:"updated_count"`
	Message      string `json:"message"`
}

type SetValueRequest struct {
	Value int64 `json:"value"`
}
