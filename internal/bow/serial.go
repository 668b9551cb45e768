package bow

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/amankumarsingh77/bow_bench/internal/tokenizer"
)

// RunSerial computes the full matrix in a single process and writes it to
// the baseline artifact. It shares the tokenizer and the matrix writer with
// the distributed run so the two outputs are directly comparable.
func RunSerial(cfg *ExperimentConfig) (ExperimentResult, error) {
	var result ExperimentResult
	if len(cfg.DocumentPaths) == 0 {
		log.Println("No documents to process")
		return result, nil
	}

	start := time.Now()

	var documentCounts []map[string]int
	var docNames []string
	for _, path := range cfg.DocumentPaths {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Could not open the document %s: %v", path, err)
			continue
		}
		if len(content) == 0 {
			continue
		}
		counts := tokenizer.TermCounts(content)
		counts = cfg.Analyzer.Apply(counts)
		documentCounts = append(documentCounts, counts)
		docNames = append(docNames, filepath.Base(path))
	}

	if len(documentCounts) == 0 {
		log.Println("Could not process any valid document")
		return result, nil
	}

	vocabulary := buildVocabulary(documentCounts)
	vocab := NewVocabulary(vocabulary)
	matrix := make([][]int, 0, len(documentCounts))
	for _, counts := range documentCounts {
		matrix = append(matrix, encodeRow(counts, vocab))
	}

	outPath := filepath.Join(cfg.outputDir(), SerialArtifact)
	if err := WriteMatrixCSV(outPath, vocabulary, docNames, matrix); err != nil {
		return result, err
	}

	elapsed := msSince(start)
	result.TotalTimeMs = elapsed
	result.AverageTimeMs = elapsed
	result.Documents = len(documentCounts)
	result.VocabTerms = len(vocabulary)
	return result, nil
}
