package engine

// Stage names the pass a failure happened in.
type Stage string

const (
	StageRewrite Stage = "rewrite"
	StageRemap   Stage = "remap"
	StageWrite   Stage = "write"
)

// Failure is one contained per-file error, kept for the aggregate report.
type Failure struct {
	Filename string
	Stage    Stage
	Err      error
}

// Report aggregates the outcome of one run. Failures never abort the batch;
// they are surfaced here, one entry per failed file operation.
type Report struct {
	Rewritten int
	Renamed   int
	Failures  []Failure
}

func (r *Report) fail(filename string, stage Stage, err error) {
	r.Failures = append(r.Failures, Failure{Filename: filename, Stage: stage, Err: err})
}

// Failed reports whether any file operation failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}
