package scoring

import (
	"regexp"
	"strings"
)

var (
	separatorLine = regexp.MustCompile(`^\|[-:|\s]+\|$`)
	boldMarkup    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// TableRows parses a markdown pipe table into rows of trimmed cells,
// skipping separator lines and anything that is not a pipe row.
func TableRows(markdown string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 2 || !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			continue
		}
		if separatorLine.MatchString(line) {
			continue
		}
		cells := strings.Split(line[1:len(line)-1], "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	return rows
}

// TEDS scores table structure similarity in [0, 1]. Rows are aligned with
// an edit distance where a row substitution is free only when both rows
// have the same column count and equal normalised cells.
func TEDS(pred, truth string) float64 {
	if strings.TrimSpace(truth) == "" {
		if strings.TrimSpace(pred) == "" {
			return 1
		}
		return 0
	}
	if strings.TrimSpace(pred) == "" {
		return 0
	}

	a, b := TableRows(pred), TableRows(truth)
	maxNodes := max(nodeCount(a), nodeCount(b))

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
		dp[i][0] = i
	}
	for j := range dp[0] {
		dp[0][j] = j
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			dp[i][j] = min(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+rowCost(a[i-1], b[j-1]))
		}
	}

	score := 1 - float64(dp[len(a)][len(b)])/float64(maxNodes)
	return min(1, max(0, score))
}

func nodeCount(rows [][]string) int {
	n := 1
	for _, r := range rows {
		n += 1 + len(r)
	}
	return n
}

func rowCost(a, b []string) int {
	if len(a) != len(b) {
		return 1
	}
	for i := range a {
		if normalizeCell(a[i]) != normalizeCell(b[i]) {
			return 1
		}
	}
	return 0
}

func normalizeCell(c string) string {
	c = boldMarkup.ReplaceAllString(strings.TrimSpace(c), "$1")
	return normalize(spaceRun.ReplaceAllString(c, " "))
}
