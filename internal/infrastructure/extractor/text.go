package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// directRead loads the file as UTF-8, dropping undecodable bytes.
func (r *Registry) directRead(_ context.Context, path string) (string, map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read text file: %w", err)
	}
	text := strings.ToValidUTF8(string(raw), "")
	meta := map[string]any{
		"line_count": len(strings.Split(text, "\n")),
		"char_count": len([]rune(text)),
	}
	return text, meta, nil
}
