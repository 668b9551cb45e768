package corpus

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LoadDocumentNames reads the plain-text document list, one file name per
// line. Blank lines are skipped.
func LoadDocumentNames(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open the document list %s: %w", listPath, err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read the document list %s: %w", listPath, err)
	}
	return names, nil
}

// ResolveDocumentPaths turns listed names into full paths. A name is looked
// up next to the list file first, then under its books/ subdirectory. Names
// that resolve to neither are logged and dropped.
func ResolveDocumentPaths(listPath string, names []string) []string {
	listDir := filepath.Dir(listPath)
	booksDir := filepath.Join(listDir, "books")

	var resolved []string
	for _, name := range names {
		candidate := filepath.Join(listDir, name)
		if _, err := os.Stat(candidate); err != nil {
			candidate = filepath.Join(booksDir, name)
		}
		if _, err := os.Stat(candidate); err != nil {
			log.Printf("Warning: document %s was not found, skipping", name)
			continue
		}
		resolved = append(resolved, candidate)
	}
	return resolved
}

// Partition returns the document indices owned by one worker under the
// round-robin assignment i mod size. Pure function, no communication; the
// per-rank results form a disjoint cover of 0..numDocs-1.
func Partition(numDocs, rank, size int) []int {
	if size <= 0 {
		return nil
	}
	owned := make([]int, 0, (numDocs+size-1)/size)
	for idx := rank; idx < numDocs; idx += size {
		owned = append(owned, idx)
	}
	return owned
}
