package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/papercomputeco/verity/pkg/fact"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 1 << 20

// record is one JSONL input line: the fact kind next to the loose fact data.
type record struct {
	Kind string `json:"kind"`
	fact.Data
}

// ReadJSONL calls fn for every line of r after the first skip lines. Blank
// lines are reported with a nil job; malformed lines with a parse error.
func ReadJSONL(r io.Reader, skip int, fn func(line int, job *Job, err error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if line <= skip {
			continue
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			if err := fn(line, nil, nil); err != nil {
				return err
			}
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			if err := fn(line, nil, fmt.Errorf("line %d: %w", line, err)); err != nil {
				return err
			}
			continue
		}

		if err := fn(line, &Job{Line: line, Kind: rec.Kind, Data: rec.Data}, nil); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
