package logging

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ProjectDir returns the per-project log directory under baseDir,
// named <slug>-<hash> after the project root.
func ProjectDir(baseDir, projectRoot string) string {
	return filepath.Join(baseDir, projectSlug(projectRoot))
}

// JSONL appends one JSON record per line to a file.
type JSONL struct {
	Path string

	mu   sync.Mutex
	file *os.File
}

// OpenAppend opens a log file for appending, creating it and its directory.
func OpenAppend(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// OpenJSONL opens path for appending, creating it and its directory.
func OpenJSONL(path string) (*JSONL, error) {
	file, err := OpenAppend(path)
	if err != nil {
		return nil, err
	}
	return &JSONL{Path: path, file: file}, nil
}

// Write encodes v as a single line.
func (j *JSONL) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode log record: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return fmt.Errorf("log file is closed")
	}
	_, err = j.file.Write(append(data, '\n'))
	return err
}

// Close closes the log file.
func (j *JSONL) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// TailLines returns up to the last n lines of the file at path.
func TailLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := tailSeek(file, n); err != nil {
		return nil, fmt.Errorf("seek to tail position: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// tailSeek seeks to a position that covers at least the last n lines of
// typical length. The partial line at the seek position is discarded.
func tailSeek(file *os.File, n int) error {
	const avgLineLength = 200

	if n <= 0 {
		return nil
	}
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	offset := stat.Size() - int64(n*avgLineLength)
	if offset <= 0 {
		return nil
	}
	if _, err := file.Seek(offset-1, io.SeekStart); err != nil {
		return err
	}

	// Discard up to and including the first newline
	r := bufio.NewReader(file)
	skipped, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			_, err = file.Seek(stat.Size(), io.SeekStart)
		}
		return err
	}
	_, err = file.Seek(offset-1+int64(len(skipped)), io.SeekStart)
	return err
}

func projectSlug(projectRoot string) string {
	name := filepath.Base(projectRoot)
	return fmt.Sprintf("%s-%s", slugify(name), hashPath(projectRoot))
}

func slugify(input string) string {
	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_.")
	if slug == "" {
		return "project"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}
