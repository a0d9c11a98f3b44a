package service

import (
	"testing"

	"github.com/minkyu/hagwon/internal/domain"
)

func TestResolver_Resolve(t *testing.T) {
	resolver := NewQuestionTypeResolver([]domain.QuestionType{
		{ID: "qt-1", Name: "multiple-choice"},
		{ID: "qt-2", Name: "fill-in-the-blank"},
	})

	tests := []struct {
		name   string
		label  string
		wantID string
		wantOK bool
	}{
		{"known label", "multiple-choice", "qt-1", true},
		{"another known label", "fill-in-the-blank", "qt-2", true},
		{"unknown label", "essay", "", false},
		{"case sensitive", "Multiple-Choice", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := resolver.Resolve(tt.label)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.label, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestResolver_NamesSorted(t *testing.T) {
	resolver := NewTopicResolver([]domain.Topic{
		{ID: "tp-2", Name: "vocabulary"},
		{ID: "tp-1", Name: "grammar"},
		{ID: "tp-3", Name: "reading"},
	})

	names := resolver.Names()
	want := []string{"grammar", "reading", "vocabulary"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}
