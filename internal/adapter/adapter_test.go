package adapter

import "testing"

func TestFlattenTurns(t *testing.T) {
	tests := []struct {
		name  string
		turns []Turn
		want  string
	}{
		{"empty", nil, ""},
		{"single", []Turn{{Role: "user", Text: "hi"}}, "hi"},
		{
			"multi",
			[]Turn{
				{Role: "user", Text: "What is 2+2?"},
				{Role: "assistant", Text: "4"},
				{Role: "user", Text: "Why?"},
			},
			"user: What is 2+2?\nassistant: 4\nWhy?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenTurns(tt.turns); got != tt.want {
				t.Errorf("FlattenTurns() = %q, want %q", got, tt.want)
			}
		})
	}
}
