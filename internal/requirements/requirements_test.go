package requirements

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p := NewPool(filepath.Join(t.TempDir(), "ai-docs", "PRD.md"))
	p.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return p
}

func readDoc(t *testing.T, p *Pool) string {
	t.Helper()
	data, err := os.ReadFile(p.Path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestAppend(t *testing.T) {
	p := newTestPool(t)

	req, err := p.Append("  Add dark mode\x07\r\nfor the board\t!  ")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if req.Text != "Add dark mode\nfor the board\t!" {
		t.Errorf("Text: got %q", req.Text)
	}

	want := "\n## Requirement 2026-03-04 05:06:07\n\nAdd dark mode\nfor the board\t!\n\n---\n"
	if got := readDoc(t, p); got != want {
		t.Errorf("document:\ngot  %q\nwant %q", got, want)
	}
}

func TestAppendInvalid(t *testing.T) {
	p := newTestPool(t)

	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", ErrEmpty},
		{"whitespace", " \n\t ", ErrEmpty},
		{"control only", "\x00\x01\x1b", ErrEmpty},
		{"too long", strings.Repeat("a", MaxLength+1), ErrTooLong},
		{"separator", "first part\n\n---\nsecond part", ErrSeparator},
		{"separator after CRLF", "first part\r\n\r\n---", ErrSeparator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Append(tt.text); !errors.Is(err, tt.want) {
				t.Errorf("Append: got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := os.Stat(p.Path); !os.IsNotExist(err) {
		t.Error("rejected requirements must not create the document")
	}

	// A rule without a blank line before it stays inside the block.
	req, err := p.Append("first part\n---\nsecond part")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	reqs, err := p.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 1 || reqs[0].Text != req.Text {
		t.Fatalf("List: got %+v, want text %q", reqs, req.Text)
	}
	if err := p.Delete(req.Text); err != nil {
		t.Errorf("Delete: %v", err)
	}

	// Length counts characters, not bytes.
	if _, err := p.Append(strings.Repeat("需", MaxLength)); err != nil {
		t.Errorf("%d multi-byte characters should be accepted: %v", MaxLength, err)
	}
}

func TestListPreservesSurroundingText(t *testing.T) {
	p := newTestPool(t)
	if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
		t.Fatal(err)
	}
	doc := "# Product requirements\n\nIntro paragraph.\n" +
		"\n## Requirement 2026-01-01 10:00:00\n\nfirst\n\n---\n" +
		"\n## Requirement 2026-01-02 10:00:00 [converted]\n\nsecond\nline two\n\n---\n"
	if err := os.WriteFile(p.Path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	reqs, err := p.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 {
		t.Fatalf("List: got %d requirements, want 2", len(reqs))
	}
	if reqs[0].Text != "first" || reqs[0].Converted || reqs[0].Timestamp != "2026-01-01 10:00:00" {
		t.Errorf("first: got %+v", reqs[0])
	}
	if reqs[1].Text != "second\nline two" || !reqs[1].Converted {
		t.Errorf("second: got %+v", reqs[1])
	}

	pending, err := p.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Text != "first" {
		t.Errorf("Pending: got %+v", pending)
	}

	if err := p.Delete("first"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got := readDoc(t, p)
	if !strings.HasPrefix(got, "# Product requirements\n\nIntro paragraph.\n") {
		t.Errorf("surrounding text lost: %q", got)
	}
	if strings.Contains(got, "first") {
		t.Errorf("deleted block still present: %q", got)
	}
}

func TestListMissingDocument(t *testing.T) {
	p := newTestPool(t)
	reqs, err := p.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reqs) != 0 {
		t.Errorf("got %v, want empty", reqs)
	}
}

func TestMarkConverted(t *testing.T) {
	p := newTestPool(t)
	for _, text := range []string{"alpha", "beta", "alpha"} {
		if _, err := p.Append(text); err != nil {
			t.Fatal(err)
		}
	}

	if err := p.MarkConverted(" alpha "); err != nil {
		t.Fatalf("MarkConverted: %v", err)
	}
	reqs, _ := p.List()
	if !reqs[0].Converted || reqs[1].Converted || reqs[2].Converted {
		t.Errorf("only the first alpha should be converted: %+v", reqs)
	}

	// The next call converts the remaining duplicate.
	if err := p.MarkConverted("alpha"); err != nil {
		t.Fatalf("MarkConverted: %v", err)
	}
	if err := p.MarkConverted("alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("third MarkConverted: got %v, want ErrNotFound", err)
	}
	if err := p.MarkConverted("gamma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown text: got %v, want ErrNotFound", err)
	}
	if err := p.MarkConverted(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty text: got %v, want ErrEmpty", err)
	}
}

func TestDelete(t *testing.T) {
	p := newTestPool(t)
	for _, text := range []string{"one", "two", "three"} {
		if _, err := p.Append(text); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Delete("two"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := "\n## Requirement 2026-03-04 05:06:07\n\none\n\n---\n" +
		"\n## Requirement 2026-03-04 05:06:07\n\nthree\n\n---\n"
	if got := readDoc(t, p); got != want {
		t.Errorf("document:\ngot  %q\nwant %q", got, want)
	}
	if err := p.Delete("two"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"plain":            "plain",
		"  padded \n":      "padded",
		"a\r\nb":           "a\nb",
		"bell\x07":         "bell",
		"tab\tkept":        "tab\tkept",
		"del\x7fc1\u0085x": "delc1x",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q): got %q, want %q", in, got, want)
		}
	}
}
