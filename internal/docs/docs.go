// Package docs regenerates the codex-managed block of CLAUDE.md from
// the current index.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileName    = "CLAUDE.md"
	beginMarker = "<!-- codex:begin -->"
	endMarker   = "<!-- codex:end -->"
)

// Summary is what the generator needs from the query engine; the CLI
// supplies it from Brief().
type Summary struct {
	Brief string
}

// Write updates the codex block in <root>/CLAUDE.md, creating the file
// when absent and preserving any content outside the markers.
func Write(root string, summary Summary) error {
	path := filepath.Join(root, fileName)
	block := renderBlock(summary)

	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return os.WriteFile(path, []byte(block), 0o644)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	content := string(existing)
	begin := strings.Index(content, beginMarker)
	end := strings.Index(content, endMarker)
	if begin >= 0 && end > begin {
		rest := strings.TrimPrefix(content[end+len(endMarker):], "\n")
		content = content[:begin] + block + rest
	} else {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n" + block
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func renderBlock(summary Summary) string {
	var b strings.Builder
	b.WriteString(beginMarker + "\n")
	b.WriteString("# Codebase Index\n\n")
	b.WriteString("This project is indexed by codex. Query it instead of grepping:\n\n")
	b.WriteString("```\n")
	b.WriteString("codex search <query>     ranked full-text symbol search\n")
	b.WriteString("codex context <symbol>   symbol body plus dependencies and dependents\n")
	b.WriteString("codex callers <symbol>   who calls or references a symbol\n")
	b.WriteString("codex impact <file>      files affected by changing a file\n")
	b.WriteString("codex brief              index overview\n")
	b.WriteString("```\n\n")
	b.WriteString("## Overview\n\n")
	b.WriteString("```\n")
	b.WriteString(summary.Brief)
	b.WriteString("```\n")
	b.WriteString(endMarker + "\n")
	return b.String()
}
