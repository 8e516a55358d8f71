package inventory

import "sort"

// ReferenceIndex is the project-wide merge of per-file reference counts.
// Built after the per-file barrier; read-only afterwards.
type ReferenceIndex struct {
	calls    map[string]int
	mentions map[string]map[MentionContext]bool
}

// NewReferenceIndex returns an empty index.
func NewReferenceIndex() *ReferenceIndex {
	return &ReferenceIndex{
		calls:    make(map[string]int),
		mentions: make(map[string]map[MentionContext]bool),
	}
}

// AddFile folds one file's references into the index.
func (ix *ReferenceIndex) AddFile(refs *FileReferences) {
	for name, count := range refs.Calls {
		ix.calls[name] += count
	}
	for name, contexts := range refs.Mentions {
		if ix.mentions[name] == nil {
			ix.mentions[name] = make(map[MentionContext]bool)
		}
		for ctx := range contexts {
			ix.mentions[name][ctx] = true
		}
	}
}

// Count returns how many call or attribute references target the name.
// Names are matched by final component, so obj.method() counts toward
// every declaration whose base name is method.
func (ix *ReferenceIndex) Count(name string) int {
	return ix.calls[name]
}

// Mentions returns the dynamic mention contexts recorded for the name,
// sorted for deterministic output.
func (ix *ReferenceIndex) Mentions(name string) []MentionContext {
	contexts := ix.mentions[name]
	if len(contexts) == 0 {
		return nil
	}
	out := make([]MentionContext, 0, len(contexts))
	for ctx := range contexts {
		out = append(out, ctx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge builds the project index from every file's references.
func Merge(files []*FileReferences) *ReferenceIndex {
	ix := NewReferenceIndex()
	for _, refs := range files {
		ix.AddFile(refs)
	}
	return ix
}
