package tabledetect_test

import (
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/parsing/tabledetect"
)

const invoice = `No.    Name          Qty     Amount
1      Bolt          10      15.00
2      Nut           20      5.00
3      Washer        30      3.00
4      Spring        40      12.50
Total                        35.50`

const prose = `This chapter introduces the design of the system.
It explains the motivation and the constraints that shaped it.
Later sections describe each component in turn.`

func TestDetectTablePage(t *testing.T) {
	res := tabledetect.Detect([]string{prose, invoice})

	if !res.HasTable || !res.RecommendOCR {
		t.Fatalf("expected table, got %+v", res)
	}
	if got := res.TablePages(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("table pages = %v", got)
	}
	if res.Pages[0].HasTable {
		t.Fatalf("prose page flagged: %+v", res.Pages[0])
	}
	if res.Pages[1].NumberCols < 3 || res.Pages[1].HeaderHits < 3 {
		t.Fatalf("invoice signals too weak: %+v", res.Pages[1])
	}
}

func TestDetectPlainText(t *testing.T) {
	res := tabledetect.Detect([]string{prose, prose})
	if res.HasTable || res.RecommendOCR || res.Score != 0 {
		t.Fatalf("plain text flagged: %+v", res)
	}
}

func TestHeaderRuleWithoutVolume(t *testing.T) {
	// Two header hits with a few wide gaps is enough even below the indicator threshold.
	page := "Name    Date    Place\nAlice    May    Lima\nBob    June    Quito\nEve    July    Cusco"
	ps := tabledetect.AnalyzePage(page)
	if ps.HeaderHits != 2 || ps.SpaceRuns <= 3 {
		t.Fatalf("unexpected signals: %+v", ps)
	}
	if !ps.HasTable {
		t.Fatalf("expected header rule to fire: %+v", ps)
	}
}

func TestEmpty(t *testing.T) {
	res := tabledetect.Detect(nil)
	if res.HasTable || res.PageCount != 0 || len(res.TablePages()) != 0 {
		t.Fatalf("empty input: %+v", res)
	}
}
