package service

import (
	"sort"

	"github.com/minkyu/hagwon/internal/domain"
)

// Resolver maps free-text classification labels to stable vocabulary IDs.
// Built once per run from the subject's vocabulary; resolution returns a
// found/not-found pair instead of an error so misses stay cheap inside
// per-candidate loops.
type Resolver struct {
	idsByName map[string]string
}

// NewQuestionTypeResolver builds a resolver over the subject's question types.
func NewQuestionTypeResolver(types []domain.QuestionType) *Resolver {
	ids := make(map[string]string, len(types))
	for _, t := range types {
		ids[t.Name] = t.ID
	}
	return &Resolver{idsByName: ids}
}

// NewTopicResolver builds a resolver over the subject's topics.
func NewTopicResolver(topics []domain.Topic) *Resolver {
	ids := make(map[string]string, len(topics))
	for _, t := range topics {
		ids[t.Name] = t.ID
	}
	return &Resolver{idsByName: ids}
}

// Resolve looks up the vocabulary ID for a label.
// Parameters:
//   - name: classification label as produced by the model.
//
// Returns:
//   - string: vocabulary ID, empty when not found.
//   - bool: true if the label exists in the vocabulary.
func (r *Resolver) Resolve(name string) (string, bool) {
	id, ok := r.idsByName[name]
	return id, ok
}

// Names returns the vocabulary labels in sorted order, for prompt rendering
// and schema enums.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.idsByName))
	for name := range r.idsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the vocabulary size.
func (r *Resolver) Len() int {
	return len(r.idsByName)
}
