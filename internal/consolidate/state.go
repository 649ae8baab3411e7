package consolidate

// State is the merge state derived from the source directory and the
// consolidated file. It is recomputed on demand and never persisted.
type State struct {
	// Exists reports whether the consolidated file is present.
	Exists     bool
	Rows       int
	Candidates []string
	// Merged candidates already appear in the provenance column.
	Merged []string
	// Missing candidates are on disk but not yet consolidated.
	Missing []string
	// Orphaned provenance values have no matching file on disk, usually
	// because the source was deleted after merging.
	Orphaned []string
	Warnings []string
}

// State reports what a Consolidate call would merge, without reading any
// trip file or writing anything.
func (c *Consolidator) State() (*State, error) {
	res := &Result{}
	candidates, err := c.discover(res)
	if err != nil {
		return nil, err
	}
	existing, exists, err := c.load()
	if err != nil {
		return nil, err
	}
	st := &State{
		Exists:     exists,
		Rows:       existing.Len(),
		Candidates: candidates,
		Missing:    Missing(candidates, existing),
		Warnings:   res.Warnings,
	}
	onDisk := make(map[string]struct{}, len(candidates))
	for _, name := range candidates {
		onDisk[name] = struct{}{}
	}
	missing := make(map[string]struct{}, len(st.Missing))
	for _, name := range st.Missing {
		missing[name] = struct{}{}
	}
	for _, name := range candidates {
		if _, ok := missing[name]; !ok {
			st.Merged = append(st.Merged, name)
		}
	}
	for _, v := range existing.Distinct(ProvenanceColumn) {
		if _, ok := onDisk[v]; !ok {
			st.Orphaned = append(st.Orphaned, v)
		}
	}
	return st, nil
}
