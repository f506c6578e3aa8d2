package query

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineSize matches the sealing reader; alerts carry their raw record.
const maxLineSize = 16 * 1024 * 1024

// ReadAlerts streams alerts from NDJSON exports (plain or sealed). With no
// files, or the file "-", it reads stdin. Undecodable lines are reported on
// the channel and reading continues.
func ReadAlerts(files []string) <-chan AlertResult {
	ch := make(chan AlertResult, 100)

	go func() {
		defer close(ch)

		if len(files) == 0 {
			readFromReader(os.Stdin, "stdin", ch)
			return
		}

		for _, file := range files {
			if file == "-" {
				readFromReader(os.Stdin, "stdin", ch)
				continue
			}
			f, err := os.Open(file)
			if err != nil {
				ch <- AlertResult{Err: fmt.Errorf("failed to open file %s: %w", file, err)}
				continue
			}
			readFromReader(f, file, ch)
			f.Close()
		}
	}()

	return ch
}

func readFromReader(r io.Reader, source string, ch chan<- AlertResult) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var res AlertResult
		if err := json.Unmarshal(line, &res.Alert); err != nil {
			ch <- AlertResult{Err: fmt.Errorf("JSON parse error in %s line %d: %w", source, lineNumber, err)}
			continue
		}
		ch <- res
	}

	if err := scanner.Err(); err != nil {
		ch <- AlertResult{Err: fmt.Errorf("scanner error in %s: %w", source, err)}
	}
}
