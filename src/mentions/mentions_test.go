package mentions

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokens(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "no mentions",
			content: "just a plain post about nothing",
			want:    nil,
		},
		{
			name:    "single mention",
			content: "sync up @alice tomorrow",
			want:    []string{"alice"},
		},
		{
			name:    "order of first appearance",
			content: "@carol then @alice then @bob",
			want:    []string{"carol", "alice", "bob"},
		},
		{
			name:    "duplicates collapsed",
			content: "@alice ping @bob and again @alice",
			want:    []string{"alice", "bob"},
		},
		{
			name:    "maximal non-whitespace run",
			content: "fyi @alice.smith and @bob_92",
			want:    []string{"alice.smith", "bob_92"},
		},
		{
			name:    "bare at sign ignored",
			content: "meet @ noon",
			want:    nil,
		},
		{
			name:    "mention at end of content",
			content: "thanks @dave",
			want:    []string{"dave"},
		},
		{
			name:    "empty content",
			content: "",
			want:    nil,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Tokens(c.content)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("Tokens(%q) mismatch (-want +got):\n%s", c.content, diff)
			}
		})
	}
}
