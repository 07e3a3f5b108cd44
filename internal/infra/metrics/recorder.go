package metrics

// Recorder adapts the package-level collectors to the use-case layer's
// metrics interface so use cases never import this package directly.
type Recorder struct{}

func (Recorder) BranchRun(workflow, outcome string) { IncBranchRun(workflow, outcome) }

func (Recorder) BranchDuration(workflow string, seconds float64) {
	ObserveBranchDuration(workflow, seconds)
}

func (Recorder) BatchJobsSubmitted(workflow string, n int) { IncBatchJobsSubmitted(workflow, n) }

func (Recorder) BatchPoll(workflow string) { IncBatchPoll(workflow) }

func (Recorder) ArticlesDispatched(workflow, bucket string, n int) {
	IncArticlesDispatched(workflow, bucket, n)
}

func (Recorder) SynthesisChunk(speaker string) { IncSynthesisChunk(speaker) }

func (Recorder) AudioBytes(n int) { AddAudioBytes(n) }
