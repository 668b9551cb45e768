package bow

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// buildVocabulary returns the sorted union of all terms across the
// per-document count maps.
func buildVocabulary(documentCounts []map[string]int) []string {
	set := make(map[string]struct{})
	for _, counts := range documentCounts {
		for term := range counts {
			set[term] = struct{}{}
		}
	}
	vocabulary := make([]string, 0, len(set))
	for term := range set {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)
	return vocabulary
}

// encodeRow writes one document's counts into a zero-filled row aligned to
// the vocabulary's column order.
func encodeRow(counts map[string]int, vocab *Vocabulary) []int {
	row := make([]int, vocab.Len())
	for term, n := range counts {
		if col, ok := vocab.Column(term); ok {
			row[col] = n
		}
	}
	return row
}

// WriteMatrixCSV writes the matrix with a "document" column followed by one
// column per vocabulary term, creating the parent directory if needed.
func WriteMatrixCSV(path string, vocabulary []string, docNames []string, matrix [][]int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the output directory for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the output file %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	header := make([]string, 0, len(vocabulary)+1)
	header = append(header, "document")
	header = append(header, vocabulary...)
	if err := writer.Write(header); err != nil {
		file.Close()
		return fmt.Errorf("failed to write the header of %s: %w", path, err)
	}

	for i, name := range docNames {
		record := make([]string, 0, len(matrix[i])+1)
		record = append(record, name)
		for _, value := range matrix[i] {
			record = append(record, strconv.Itoa(value))
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return fmt.Errorf("failed to write row %d of %s: %w", i, path, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}
