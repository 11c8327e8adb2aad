// Package requirements manages the requirement pool kept in ai-docs/PRD.md.
//
// Each requirement is an appended Markdown block:
//
//	## Requirement 2006-01-02 15:04:05
//
//	<text>
//
//	---
//
// A converted requirement's header carries a " [converted]" suffix. Text
// outside the blocks is preserved when the document is rewritten.
package requirements

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/nibzard/agileflow-go/internal/utils"
)

// MaxLength is the maximum requirement length in characters.
const MaxLength = 5000

// TimestampLayout formats block timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	headerPrefix    = "## Requirement "
	convertedSuffix = " [converted]"
	blockSeparator  = "\n\n---"
)

var (
	// ErrEmpty reports a requirement with no content after sanitizing.
	ErrEmpty = errors.New("requirement is empty")

	// ErrTooLong reports a requirement over MaxLength characters.
	ErrTooLong = fmt.Errorf("requirement is too long (max %d characters)", MaxLength)

	// ErrSeparator reports text containing the block separator, which would
	// end the block early when the document is read back.
	ErrSeparator = fmt.Errorf("requirement must not contain %q", blockSeparator)

	// ErrNotFound reports a requirement text with no matching block.
	ErrNotFound = errors.New("requirement not found")
)

var blockPattern = regexp.MustCompile(`(?ms)^## Requirement (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})( \[converted\])?\n\n(.*?)\n\n---\n?`)

// Requirement is one block of the pool.
type Requirement struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
	Converted bool   `json:"converted"`
}

// Pool reads and writes the requirement document at Path.
type Pool struct {
	Path string

	mu  sync.Mutex
	now func() time.Time
}

// NewPool returns a pool backed by the document at path.
func NewPool(path string) *Pool {
	return &Pool{Path: path, now: time.Now}
}

// Sanitize removes control characters other than newline and tab, normalizes
// line endings, and trims surrounding whitespace.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

// Append adds text as a new block at the end of the document and returns it.
func (p *Pool) Append(text string) (Requirement, error) {
	text = Sanitize(text)
	if text == "" {
		return Requirement{}, ErrEmpty
	}
	if utf8.RuneCountInString(text) > MaxLength {
		return Requirement{}, ErrTooLong
	}
	if strings.Contains(text, blockSeparator) {
		return Requirement{}, ErrSeparator
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
		return Requirement{}, fmt.Errorf("create requirements dir: %w", err)
	}
	req := Requirement{Timestamp: p.clock().Format(TimestampLayout), Text: text}

	f, err := os.OpenFile(p.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return Requirement{}, fmt.Errorf("open requirements: %w", err)
	}
	if _, err := f.WriteString(formatBlock(req)); err != nil {
		f.Close()
		return Requirement{}, fmt.Errorf("append requirement: %w", err)
	}
	if err := f.Close(); err != nil {
		return Requirement{}, fmt.Errorf("append requirement: %w", err)
	}
	return req, nil
}

// List returns the requirements in document order. A missing document is an
// empty pool.
func (p *Pool) List() ([]Requirement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.read()
	if err != nil {
		return nil, err
	}
	var reqs []Requirement
	for _, m := range blockPattern.FindAllStringSubmatch(doc, -1) {
		reqs = append(reqs, Requirement{
			Timestamp: m[1],
			Converted: m[2] != "",
			Text:      m[3],
		})
	}
	return reqs, nil
}

// Pending returns the requirements not yet converted to tasks.
func (p *Pool) Pending() ([]Requirement, error) {
	reqs, err := p.List()
	if err != nil {
		return nil, err
	}
	pending := reqs[:0]
	for _, r := range reqs {
		if !r.Converted {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// MarkConverted flags the first unconverted block whose text matches.
func (p *Pool) MarkConverted(text string) error {
	return p.rewrite(text, true, func(doc string, loc []int) string {
		// loc[3] is the end of the timestamp
		return doc[:loc[3]] + convertedSuffix + doc[loc[3]:]
	})
}

// Delete removes the first block whose text matches, including the blank
// line that precedes it.
func (p *Pool) Delete(text string) error {
	return p.rewrite(text, false, func(doc string, loc []int) string {
		start := loc[0]
		if start > 0 && doc[start-1] == '\n' {
			start--
		}
		return doc[:start] + doc[loc[1]:]
	})
}

func (p *Pool) rewrite(text string, skipConverted bool, edit func(doc string, loc []int) string) error {
	text = Sanitize(text)
	if text == "" {
		return ErrEmpty
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.read()
	if err != nil {
		return err
	}
	for _, loc := range blockPattern.FindAllStringSubmatchIndex(doc, -1) {
		if skipConverted && loc[4] >= 0 {
			continue
		}
		if strings.TrimSpace(doc[loc[6]:loc[7]]) != text {
			continue
		}
		if err := utils.WriteFileAtomic(p.Path, []byte(edit(doc, loc)), 0644); err != nil {
			return fmt.Errorf("write requirements: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotFound, truncate(text, 60))
}

func (p *Pool) read() (string, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read requirements: %w", err)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func (p *Pool) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func formatBlock(r Requirement) string {
	header := headerPrefix + r.Timestamp
	if r.Converted {
		header += convertedSuffix
	}
	return "\n" + header + "\n\n" + r.Text + "\n\n---\n"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
