package usecase

// Metrics is the counter surface the use cases report into. The
// prometheus-backed implementation lives in the infra layer; tests and
// callers that don't care pass NopMetrics.
type Metrics interface {
	BranchRun(workflow, outcome string)
	BranchDuration(workflow string, seconds float64)
	BatchJobsSubmitted(workflow string, n int)
	BatchPoll(workflow string)
	ArticlesDispatched(workflow, bucket string, n int)
	SynthesisChunk(speaker string)
	AudioBytes(n int)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) BranchRun(string, string)               {}
func (NopMetrics) BranchDuration(string, float64)         {}
func (NopMetrics) BatchJobsSubmitted(string, int)         {}
func (NopMetrics) BatchPoll(string)                       {}
func (NopMetrics) ArticlesDispatched(string, string, int) {}
func (NopMetrics) SynthesisChunk(string)                  {}
func (NopMetrics) AudioBytes(int)                         {}
