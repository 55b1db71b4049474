// services/recorder.go
package services

// Recorder receives ledger events. monitor.Metrics implements it.
type Recorder interface {
	VariantAdded(shiny bool, n uint64)
	Evolution(result string)
	Trade(result string)
	PartialApply(stage string)
	RollsReset(players int64)
	PendingTrades(n int)
}

type nopRecorder struct{}

func (nopRecorder) VariantAdded(bool, uint64) {}
func (nopRecorder) Evolution(string)          {}
func (nopRecorder) Trade(string)              {}
func (nopRecorder) PartialApply(string)       {}
func (nopRecorder) RollsReset(int64)          {}
func (nopRecorder) PendingTrades(int)         {}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// metric label values
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultDeclined = "declined"
	ResultPartial  = "partial"
	ResultError    = "error"
)
