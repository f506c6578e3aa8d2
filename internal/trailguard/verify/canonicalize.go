package verify

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Canonicalize renders an alert document as compact JSON with object keys
// sorted at every depth and the top-level chain fields left out. Values are
// written exactly as decoded: timestamps keep their zone and precision, so
// any edit to them changes the hash.
func Canonicalize(doc map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := writeObject(&buf, doc, isChainField); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isChainField(key string) bool {
	return key == FieldPrev || key == FieldHash || key == FieldIndex
}

func keepAll(string) bool { return false }

// writeObject emits m with sorted keys, omitting keys for which skip is true.
func writeObject(buf *bytes.Buffer, m map[string]interface{}, skip func(string) bool) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !skip(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeScalar(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case map[string]interface{}:
		return writeObject(buf, t, keepAll)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return writeScalar(buf, t)
	}
}

func writeScalar(buf *bytes.Buffer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
