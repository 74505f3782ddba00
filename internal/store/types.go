package store

import "time"

// File is one tracked source file. Paths are root-relative with
// forward-slash separators.
type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Symbol is a named declaration extracted from a file. Line numbers are
// 1-based inclusive.
type Symbol struct {
	ID            int64
	FileID        int64
	Name          string
	QualifiedName string
	Kind          string
	StartLine     int
	EndLine       int
	Signature     string
	Docstring     string
	Content       string
	Exported      bool
}

// Edge is a directed relationship between two symbols. Kind is "calls"
// (intra-file) or "references" (cross-file, via imports).
type Edge struct {
	ID           int64
	FromSymbolID int64
	ToSymbolID   int64
	Kind         string
}

// FileDep is a directed import relationship between two files. Name is
// the comma-joined imported identifier list, or "*" when the import has
// no named bindings.
type FileDep struct {
	ID         int64
	FromFileID int64
	ToFileID   int64
	Kind       string
	Name       string
}

// Ranking is the PageRank score and degree counts for one symbol,
// regenerated on every full re-index.
type Ranking struct {
	SymbolID  int64
	Rank      float64
	InDegree  int
	OutDegree int
}
