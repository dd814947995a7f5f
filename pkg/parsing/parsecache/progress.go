package parsecache

import (
	"fmt"
	"strconv"
	"strings"
)

func fmtProgress(p Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d pages cached (%.0f%%)", len(p.SuccessPages), p.TotalPages, p.Percent)
	if len(p.FailedPages) > 0 {
		b.WriteString(", failed: ")
		b.WriteString(joinInts(p.FailedPages))
	}
	if len(p.PendingPages) > 0 && !p.Complete {
		b.WriteString(", pending: ")
		b.WriteString(joinInts(p.PendingPages))
	}
	return b.String()
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
