package extract

import (
	"os"
	"strings"
)

func extractText(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, ErrRegistry.NewWithCause(ErrRead, err).WithDetail("path", path)
	}
	text := strings.ToValidUTF8(string(data), "")
	text = strings.TrimPrefix(text, "﻿")
	return Result{Text: text, Pages: []string{text}}, nil
}
