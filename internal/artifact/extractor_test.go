// internal/artifact/extractor_test.go
package artifact

import (
	"testing"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
)

func TestExtractNone(t *testing.T) {
	got := Extract("just prose, no code here", "m1")
	if len(got) != 0 {
		t.Errorf("expected no artifacts, got %d", len(got))
	}
}

func TestExtractSingleWithLanguage(t *testing.T) {
	text := "Here is the solution:\n```python\nprint('hello')\n```\nDone."
	got := Extract(text, "m1")
	if len(got) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(got))
	}
	a := got[0]
	if a.Kind != types.ArtifactKindCode {
		t.Errorf("kind = %q", a.Kind)
	}
	if a.Language != "python" {
		t.Errorf("language = %q", a.Language)
	}
	if a.Content != "print('hello')" {
		t.Errorf("content = %q", a.Content)
	}
	if a.MessageID != "m1" {
		t.Errorf("message ref = %q", a.MessageID)
	}
}

func TestExtractNoLanguageDefaultsPlaintext(t *testing.T) {
	got := Extract("```\nsome text\n```", "m1")
	if len(got) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(got))
	}
	if got[0].Language != DefaultLanguage {
		t.Errorf("language = %q, want %q", got[0].Language, DefaultLanguage)
	}
}

func TestExtractMultiple(t *testing.T) {
	text := "```go\nfunc main() {}\n```\nmiddle prose\n```js\nconsole.log(1)\n```"
	got := Extract(text, "m1")
	if len(got) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(got))
	}
	if got[0].Language != "go" || got[1].Language != "js" {
		t.Errorf("languages = %q, %q", got[0].Language, got[1].Language)
	}
}

func TestExtractUnterminatedFenceIgnored(t *testing.T) {
	got := Extract("```python\nprint('oops')", "m1")
	if len(got) != 0 {
		t.Errorf("unterminated fence should yield nothing, got %d artifacts", len(got))
	}
}

func TestExtractIdempotent(t *testing.T) {
	text := "```sql\nSELECT 1;\n```\n```\nplain\n```"
	first := Extract(text, "m1")
	second := Extract(text, "m1")
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Language != second[i].Language || first[i].Content != second[i].Content {
			t.Errorf("pair %d differs: (%q,%q) vs (%q,%q)",
				i, first[i].Language, first[i].Content, second[i].Language, second[i].Content)
		}
	}
}
