package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDumper writes line-oriented output files, creating parent directories
// as needed.
type FileDumper struct {
	filepath string
}

func (this *FileDumper) Init(filepath string) {
	this.filepath = filepath
}

func (this *FileDumper) WriteLines(lines []string) {
	dirpath := filepath.Dir(this.filepath)
	if err := os.MkdirAll(dirpath, 0o755); err != nil {
		panic(err)
	}

	content := strings.Join(lines, "\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	if err := os.WriteFile(this.filepath, []byte(content), 0o644); err != nil {
		panic(err)
	}
}
