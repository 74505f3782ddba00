package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestFile(t *testing.T, s *Store, path, hash string) int64 {
	t.Helper()
	id, changed, err := UpsertFile(s.db, path, "typescript", hash, 10)
	require.NoError(t, err)
	require.True(t, changed)
	return id
}

func insertTestSymbol(t *testing.T, s *Store, fileID int64, name, kind string) int64 {
	t.Helper()
	id, err := InsertSymbol(s.db, &Symbol{
		FileID: fileID, Name: name, Kind: kind,
		StartLine: 1, EndLine: 3,
		Signature: "function " + name + "()",
		Content:   "function " + name + "() {}",
		Exported:  true,
	})
	require.NoError(t, err)
	return id
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestOpen_SchemaAndPragmas(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "symbols", "edges", "file_deps", "rankings"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenExisting_MissingIndex(t *testing.T) {
	t.Parallel()
	_, err := OpenExisting(t.TempDir())
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestUpsertFile_ChangeDetection(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	id, changed, err := UpsertFile(s.db, "a.ts", "typescript", "1111111111111111", 5)
	require.NoError(t, err)
	assert.True(t, changed, "first insert counts as changed")

	id2, changed, err := UpsertFile(s.db, "a.ts", "typescript", "1111111111111111", 5)
	require.NoError(t, err)
	assert.False(t, changed, "same digest is unchanged")
	assert.Equal(t, id, id2, "identity is stable")

	id3, changed, err := UpsertFile(s.db, "a.ts", "typescript", "2222222222222222", 6)
	require.NoError(t, err)
	assert.True(t, changed, "new digest is a change")
	assert.Equal(t, id, id3, "identity survives content changes")
}

func TestEdge_UniquenessIgnored(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	from := insertTestSymbol(t, s, f, "foo", "function")
	to := insertTestSymbol(t, s, f, "bar", "function")

	require.NoError(t, InsertEdge(s.db, from, to, "calls"))
	require.NoError(t, InsertEdge(s.db, from, to, "calls"))
	require.NoError(t, InsertEdge(s.db, from, to, "references"))
	assert.Equal(t, 2, count(t, s, "edges"))
}

func TestFileDep_UniquenessIgnored(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	b := insertTestFile(t, s, "b.ts", "bbbb000000000000")

	require.NoError(t, InsertFileDep(s.db, a, b, "import", "bar"))
	require.NoError(t, InsertFileDep(s.db, a, b, "import", "bar"))
	require.NoError(t, InsertFileDep(s.db, a, b, "import", "baz"))
	assert.Equal(t, 2, count(t, s, "file_deps"))
}

func TestFTS_TriggersKeepProjectionInSync(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	id := insertTestSymbol(t, s, f, "parseConfig", "function")

	var hits int
	require.NoError(t, s.db.QueryRow(
		"SELECT COUNT(*) FROM symbols_fts WHERE symbols_fts MATCH ?", `"parseConfig"`,
	).Scan(&hits))
	assert.Equal(t, 1, hits, "insert trigger populates FTS")

	_, err := s.db.Exec("DELETE FROM symbols WHERE id = ?", id)
	require.NoError(t, err)
	require.NoError(t, s.db.QueryRow(
		"SELECT COUNT(*) FROM symbols_fts WHERE symbols_fts MATCH ?", `"parseConfig"`,
	).Scan(&hits))
	assert.Equal(t, 0, hits, "delete trigger removes the FTS row")
}

func TestClearFileData_RemovesOwnedRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	b := insertTestFile(t, s, "b.ts", "bbbb000000000000")
	aSym := insertTestSymbol(t, s, a, "foo", "function")
	bSym := insertTestSymbol(t, s, b, "bar", "function")

	require.NoError(t, InsertEdge(s.db, aSym, bSym, "references"))
	require.NoError(t, InsertEdge(s.db, bSym, aSym, "calls"))
	require.NoError(t, InsertFileDep(s.db, a, b, "import", "bar"))
	require.NoError(t, InsertFileDep(s.db, b, a, "import", "foo"))
	_, err := s.db.Exec("INSERT INTO rankings (symbol_id, rank, in_degree, out_degree) VALUES (?, 0.5, 1, 1)", aSym)
	require.NoError(t, err)

	require.NoError(t, ClearFileData(s.db, a))

	assert.Equal(t, 0, count(t, s, "rankings"))
	assert.Equal(t, 0, count(t, s, "edges"), "edges touching either endpoint are gone")
	assert.Equal(t, 1, count(t, s, "symbols"), "b's symbols survive")
	// Outgoing dep from a is gone; incoming dep from b survives until
	// b is reindexed or removed.
	var fromB int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM file_deps WHERE from_file_id = ?", b).Scan(&fromB))
	assert.Equal(t, 1, count(t, s, "file_deps"))
	assert.Equal(t, 1, fromB)
}

func TestRemoveFile_CascadesEverything(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	b := insertTestFile(t, s, "b.ts", "bbbb000000000000")
	aSym := insertTestSymbol(t, s, a, "foo", "function")
	bSym := insertTestSymbol(t, s, b, "bar", "function")
	require.NoError(t, InsertEdge(s.db, aSym, bSym, "references"))
	require.NoError(t, InsertFileDep(s.db, a, b, "import", "bar"))

	require.NoError(t, RemoveFile(s.db, "b.ts"))

	assert.Equal(t, 1, count(t, s, "files"))
	assert.Equal(t, 1, count(t, s, "symbols"))
	assert.Equal(t, 0, count(t, s, "edges"), "edge died with its endpoint")
	assert.Equal(t, 0, count(t, s, "file_deps"), "dep died with its target")

	// Removing an unknown path is a no-op.
	require.NoError(t, RemoveFile(s.db, "ghost.ts"))
}

func TestRemoveStale_EmptyValidSetEmptiesStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	b := insertTestFile(t, s, "b.ts", "bbbb000000000000")
	aSym := insertTestSymbol(t, s, a, "foo", "function")
	bSym := insertTestSymbol(t, s, b, "bar", "function")
	require.NoError(t, InsertEdge(s.db, aSym, bSym, "references"))
	require.NoError(t, InsertFileDep(s.db, a, b, "import", "bar"))

	require.NoError(t, RemoveStale(s.db, map[string]bool{}))

	for _, table := range []string{"files", "symbols", "edges", "file_deps", "rankings"} {
		assert.Equal(t, 0, count(t, s, table), "table %s", table)
	}
	var ftsRows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM symbols_fts").Scan(&ftsRows))
	assert.Equal(t, 0, ftsRows, "cascaded deletes fire the FTS triggers")
}

func TestRemoveStale_KeepsValidPaths(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "a.ts", "aaaa000000000000")
	insertTestFile(t, s, "b.ts", "bbbb000000000000")

	require.NoError(t, RemoveStale(s.db, map[string]bool{"a.ts": true}))

	f, err := FileByPath(s.db, "a.ts")
	require.NoError(t, err)
	require.NotNil(t, f)
	gone, err := FileByPath(s.db, "b.ts")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestReplaceRankings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	sym1 := insertTestSymbol(t, s, f, "foo", "function")
	sym2 := insertTestSymbol(t, s, f, "bar", "function")

	require.NoError(t, s.ReplaceRankings([]Ranking{
		{SymbolID: sym1, Rank: 0.7, InDegree: 1, OutDegree: 0},
		{SymbolID: sym2, Rank: 0.3, InDegree: 0, OutDegree: 1},
	}))
	assert.Equal(t, 2, count(t, s, "rankings"))

	// A second pass replaces the previous generation wholesale.
	require.NoError(t, s.ReplaceRankings([]Ranking{
		{SymbolID: sym1, Rank: 1.0},
	}))
	assert.Equal(t, 1, count(t, s, "rankings"))
}

func TestExportedSymbols_KeyedByBothNames(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.ts", "aaaa000000000000")
	id, err := InsertSymbol(s.db, &Symbol{
		FileID: f, Name: "save", QualifiedName: "Store.save", Kind: "method",
		StartLine: 4, EndLine: 9, Exported: true,
	})
	require.NoError(t, err)
	_, err = InsertSymbol(s.db, &Symbol{
		FileID: f, Name: "helper", Kind: "function",
		StartLine: 11, EndLine: 12, Exported: false,
	})
	require.NoError(t, err)

	table, err := ExportedSymbols(s.db, f)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"save": id, "Store.save": id}, table)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.WithTx(func(tx *sql.Tx) error {
		if _, _, err := UpsertFile(tx, "a.ts", "typescript", "aaaa000000000000", 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, s, "files"), "failed transaction leaves no partial state")
}
