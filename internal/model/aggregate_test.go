package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldPropagatesToEveryAncestor(t *testing.T) {
	aggregator := NewAggregator()
	require.True(t, aggregator.Fold(FileRecord{Path: "src/x.go", Lines: 10, FileType: ".go", Size: 100}))
	require.True(t, aggregator.Fold(FileRecord{Path: "src/lib/y.go", Lines: 5, FileType: ".go", Size: 40}))

	result := aggregator.Finalize()

	assert.Equal(t, int64(15), result.TotalLines)
	assert.Equal(t, int64(2), result.TotalFiles)
	assert.Equal(t, int64(15), result.FolderStats["src"].Lines)
	assert.Equal(t, int64(2), result.FolderStats["src"].Files)
	assert.Equal(t, int64(5), result.FolderStats["src/lib"].Lines)
	assert.Equal(t, int64(1), result.FolderStats["src/lib"].Files)
	assert.Equal(t, int64(15), result.FolderStats[RootFolder].Lines)
	assert.Equal(t, int64(2), result.FolderStats[RootFolder].Files)
	assert.Equal(t, int64(15), result.FileTypeStats[".go"])
}

func TestFoldIgnoresZeroLineRecords(t *testing.T) {
	aggregator := NewAggregator()
	assert.False(t, aggregator.Fold(FileRecord{Path: "a/empty.txt", Lines: 0, FileType: ".txt"}))

	result := aggregator.Finalize()

	assert.Zero(t, result.TotalFiles)
	assert.Empty(t, result.FileStats)
	assert.Empty(t, result.FileTypeStats)
	assert.NotContains(t, result.FolderStats, "a")
}

func TestFoldUsesSentinelForMissingExtension(t *testing.T) {
	aggregator := NewAggregator()
	aggregator.Fold(FileRecord{Path: "Makefile", Lines: 4})

	result := aggregator.Finalize()

	assert.Equal(t, int64(4), result.FileTypeStats[NoExtension])
	assert.Equal(t, NoExtension, result.FileStats["Makefile"].FileType)
}

func TestFinalizeEmptyResultIsWellFormed(t *testing.T) {
	result := NewAggregator().Finalize()

	assert.Zero(t, result.TotalLines)
	require.Contains(t, result.FolderStats, RootFolder)
	assert.Zero(t, result.FolderStats[RootFolder].Lines)
	assert.Zero(t, result.FolderStats[RootFolder].Percentage)
	assert.NotNil(t, result.FileStats)
	assert.NotNil(t, result.FileTypeStats)
}

func TestFinalizePercentages(t *testing.T) {
	aggregator := NewAggregator()
	aggregator.Fold(FileRecord{Path: "a.txt", Lines: 1, FileType: ".txt"})
	aggregator.Fold(FileRecord{Path: "docs/b.md", Lines: 3, FileType: ".md"})
	aggregator.Fold(FileRecord{Path: "docs/api/c.md", Lines: 4, FileType: ".md"})

	result := aggregator.Finalize()

	var sum float64
	for _, stat := range result.FileStats {
		sum += stat.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
	assert.InDelta(t, 12.5, result.FileStats["a.txt"].Percentage, 1e-9)
	assert.InDelta(t, 87.5, result.FolderStats["docs"].Percentage, 1e-9)
	assert.InDelta(t, 50.0, result.FolderStats["docs/api"].Percentage, 1e-9)
	assert.InDelta(t, 100.0, result.FolderStats[RootFolder].Percentage, 1e-9)
}

func TestFolderTotalsEqualPrefixSums(t *testing.T) {
	paths := map[string]int64{
		"main.go":              12,
		"pkg/a/a.go":           7,
		"pkg/a/a_test.go":      9,
		"pkg/b/deep/x/y.go":    3,
		"pkg/b/readme":         2,
		".github/workflow.yml": 30,
	}

	aggregator := NewAggregator()
	for filePath, lines := range paths {
		aggregator.Fold(FileRecord{Path: filePath, Lines: lines, FileType: ExtensionOf(filePath)})
	}
	result := aggregator.Finalize()

	for folder, stat := range result.FolderStats {
		var expected int64
		for filePath, lines := range paths {
			if folder == RootFolder || strings.HasPrefix(filePath, folder+"/") {
				expected += lines
			}
		}
		assert.Equal(t, expected, stat.Lines, "folder %s", folder)
	}
	assert.Equal(t, result.TotalLines, result.FolderStats[RootFolder].Lines)
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"src/lib", "src"}, Ancestors("src/lib/y.go"))
	assert.Empty(t, Ancestors("top.go"))
}

func TestExtensionOf(t *testing.T) {
	cases := map[string]string{
		"a.txt":              ".txt",
		"dir/archive.tar.gz": ".gz",
		".gitignore":         "",
		"dir/.env.local":     ".local",
		"README":             "",
		"Photo.JPG":          ".JPG",
		`win\path\file.cs`:   ".cs",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, ExtensionOf(input), input)
	}
}
