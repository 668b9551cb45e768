package corpus_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amankumarsingh77/bow_bench/internal/corpus"
)

func TestLoadDocumentNames(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "books.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("one.txt\n\ntwo.txt\n   \nthree.txt\n"), 0644))

	names, err := corpus.LoadDocumentNames(listPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"one.txt", "two.txt", "three.txt"}, names)
}

func TestLoadDocumentNamesMissingList(t *testing.T) {
	_, err := corpus.LoadDocumentNames(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestResolveDocumentPaths(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "books.txt")
	require.NoError(t, os.WriteFile(listPath, nil, 0644))

	// beside the list file
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beside.txt"), []byte("x"), 0644))
	// under the books/ subdirectory
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "books"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books", "shelved.txt"), []byte("y"), 0644))

	resolved := corpus.ResolveDocumentPaths(listPath, []string{"beside.txt", "shelved.txt", "ghost.txt"})
	assert.Equal(t, []string{
		filepath.Join(dir, "beside.txt"),
		filepath.Join(dir, "books", "shelved.txt"),
	}, resolved)
}

func TestPartitionIsADisjointCover(t *testing.T) {
	const numDocs, size = 10, 3
	seen := make([]int, 0, numDocs)
	for rank := 0; rank < size; rank++ {
		owned := corpus.Partition(numDocs, rank, size)
		for _, idx := range owned {
			assert.Equal(t, rank, idx%size)
		}
		seen = append(seen, owned...)
	}
	sort.Ints(seen)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)
}

func TestPartitionSurplusWorkerOwnsNothing(t *testing.T) {
	assert.Empty(t, corpus.Partition(2, 4, 5))
	assert.Equal(t, []int{0}, corpus.Partition(2, 0, 5))
	assert.Equal(t, []int{1}, corpus.Partition(2, 1, 5))
}
