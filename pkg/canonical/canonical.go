// Package canonical produces deterministic serializations and digests of
// submitted evidence payloads.
//
// Two payloads with the same logical content must hash identically
// regardless of map iteration order or whitespace, so verifiers can
// recompute a sealed record's digest from its stored payload. Keys are
// emitted in sorted order at every nesting level and no insignificant
// whitespace is written.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Marshal serializes v into canonical JSON: object keys sorted ascending at
// every level, no whitespace between tokens.
func Marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := writeValue(&b, v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// SumObject canonicalizes v and returns its sha256 digest in
// "sha256:<hex>" form along with the canonical bytes.
func SumObject(v any) (string, []byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", nil, err
	}
	return SumBytes(b), b, nil
}

// SumBytes returns the sha256 digest of b in "sha256:<hex>" form.
func SumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func writeValue(b *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
		return nil
	case map[string]any:
		return writeObject(b, t)
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeValue(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	default:
		// Scalars and typed values round-trip through encoding/json. A map
		// hiding behind an interface or a struct is normalized first so its
		// keys are sorted too.
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("canonical marshal: %w", err)
		}
		if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
			var norm any
			if err := json.Unmarshal(raw, &norm); err != nil {
				return fmt.Errorf("canonical normalize: %w", err)
			}
			if _, isScalar := norm.(string); !isScalar {
				return writeValue(b, norm)
			}
		}
		b.Write(raw)
		return nil
	}
}

func writeObject(b *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		b.Write(kb)
		b.WriteByte(':')
		if err := writeValue(b, m[k]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}
