package bow

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Vocabularies travel between workers as a length-prefixed string list: a
// 4-byte big-endian term count, then one 4-byte length plus raw bytes per
// term. The tokenizer never emits terms containing delimiters, but the
// encoding does not rely on that.

func EncodeTerms(terms []string) []byte {
	size := 4
	for _, t := range terms {
		size += 4 + len(t)
	}
	buf := make([]byte, 0, size)

	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(terms)))
	buf = append(buf, lb[:]...)
	for _, t := range terms {
		binary.BigEndian.PutUint32(lb[:], uint32(len(t)))
		buf = append(buf, lb[:]...)
		buf = append(buf, t...)
	}
	return buf
}

func DecodeTerms(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("vocabulary payload of %d bytes is too short", len(data))
	}
	count := int(binary.BigEndian.Uint32(data))
	data = data[4:]

	terms := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if len(data) < 4 {
			return nil, fmt.Errorf("vocabulary payload truncated at term %d of %d", i, count)
		}
		n := int(binary.BigEndian.Uint32(data))
		data = data[4:]
		if len(data) < n {
			return nil, fmt.Errorf("term %d of %d declares %d bytes but %d remain", i, count, n, len(data))
		}
		terms = append(terms, string(data[:n]))
		data = data[n:]
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("vocabulary payload has %d trailing bytes", len(data))
	}
	return terms, nil
}

// MergeTermChunks slices a flat gather buffer by the reported per-rank
// lengths, decodes each slice and returns the sorted, deduplicated union.
func MergeTermChunks(flat []byte, lens []int) ([]string, error) {
	set := make(map[string]struct{})
	offset := 0
	for r, n := range lens {
		chunk := flat[offset : offset+n]
		offset += n
		terms, err := DecodeTerms(chunk)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", r, err)
		}
		for _, t := range terms {
			set[t] = struct{}{}
		}
	}

	merged := make([]string, 0, len(set))
	for t := range set {
		merged = append(merged, t)
	}
	sort.Strings(merged)
	return merged, nil
}

// Vocabulary is the canonical sorted term list shared by all workers; it
// assigns every term its matrix column.
type Vocabulary struct {
	Terms   []string
	columns map[string]int
}

func NewVocabulary(terms []string) *Vocabulary {
	columns := make(map[string]int, len(terms))
	for i, t := range terms {
		columns[t] = i
	}
	return &Vocabulary{Terms: terms, columns: columns}
}

func (v *Vocabulary) Len() int {
	return len(v.Terms)
}

func (v *Vocabulary) Column(term string) (int, bool) {
	col, ok := v.columns[term]
	return col, ok
}
