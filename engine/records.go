package engine

// Record is the per-file outcome of the rewrite passes. Code and Err are
// mutually exclusive: a failed file carries no rewritten code and keeps its
// original on-disk content. Later passes supersede Code/Filename in place.
type Record struct {
	Filename string
	Code     string
	Err      error
}

// Records holds one record per candidate file in discovery order. The order
// is what makes runs deterministic; the index only serves lookups.
type Records struct {
	order []*Record
	index map[string]*Record
}

func newRecords() *Records {
	return &Records{index: make(map[string]*Record)}
}

func (r *Records) add(rec *Record) {
	r.order = append(r.order, rec)
	r.index[rec.Filename] = rec
}

// rename keeps the index in sync when a pass moves a record to a new path.
func (r *Records) rename(rec *Record, filename string) {
	delete(r.index, rec.Filename)
	rec.Filename = filename
	r.index[filename] = rec
}

// Get returns the record at filename, or nil.
func (r *Records) Get(filename string) *Record {
	return r.index[filename]
}

// All returns the records in candidate-discovery order. The slice is shared;
// callers must not reorder it.
func (r *Records) All() []*Record {
	return r.order
}

// Len reports the number of candidate files.
func (r *Records) Len() int {
	return len(r.order)
}
