package authlog

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"
)

// tailWindow is how much of the end of the file is scanned
const tailWindow = 256 * 1024

// FileSource reads the tail of a plain-text log such as /var/log/auth.log.
// Line timestamps are not parsed, so the lookback window is not applied;
// only the last limit lines mentioning the service are returned.
type FileSource struct {
	Path string
}

// NewFileSource creates a source over path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Recent(ctx context.Context, service string, lookback time.Duration, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	partial := false
	if info.Size() > tailWindow {
		if _, err := file.Seek(-tailWindow, io.SeekEnd); err != nil {
			return nil, err
		}
		partial = true
	}

	var lines []string
	reader := bufio.NewReader(file)
	if partial {
		// drop the line we landed in the middle of
		if _, err := reader.ReadString('\n'); err != nil {
			return nil, nil
		}
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if service != "" && !strings.Contains(line, service) {
			continue
		}
		lines = append(lines, line)
		if limit > 0 && len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, err
	}
	return lines, nil
}
