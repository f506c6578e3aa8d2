package query

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteAlertNDJSON writes v as one JSON line.
func WriteAlertNDJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal alert to JSON: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write alert: %w", err)
	}
	return nil
}
