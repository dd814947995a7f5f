// Package parsecachetest holds the behaviour every parsecache.Store must
// satisfy, shared by the backend test suites.
package parsecachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
)

// Page builds a one-element page for store tests.
func Page(no int, text string) ocr.Page {
	return ocr.Page{
		PageNo:    no,
		ImageSize: []int{1000, 1400},
		Layout: []ocr.LayoutElement{{
			ElementID:  "p1_e1",
			Type:       ocr.TypeText,
			Text:       text,
			Confidence: ocr.Float(0.9),
		}},
	}
}

// RunStoreTests exercises store through the parsecache.Store contract.
// newStore must return an empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) parsecache.Store) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("LoadMissing", func(t *testing.T) {
		s := newStore(t)
		st, err := s.Load(ctx, "missing")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if st != nil {
			t.Fatalf("expected nil state, got %+v", st)
		}
	})

	t.Run("SuccessEvictsFailure", func(t *testing.T) {
		s := newStore(t)
		if err := s.Begin(ctx, "fp", 3, at); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		info, err := s.SaveFailure(ctx, "fp", 2, "boom", at)
		if err != nil {
			t.Fatalf("SaveFailure: %v", err)
		}
		if info.RetryCount != 1 {
			t.Fatalf("retry count = %d, want 1", info.RetryCount)
		}
		info, err = s.SaveFailure(ctx, "fp", 2, "boom again", at.Add(time.Second))
		if err != nil {
			t.Fatalf("SaveFailure: %v", err)
		}
		if info.RetryCount != 2 || info.Message != "boom again" {
			t.Fatalf("failure info = %+v", info)
		}

		if err := s.SaveSuccess(ctx, "fp", Page(2, "hello"), at.Add(2*time.Second)); err != nil {
			t.Fatalf("SaveSuccess: %v", err)
		}
		st, err := s.Load(ctx, "fp")
		if err != nil || st == nil {
			t.Fatalf("Load: %v %v", st, err)
		}
		if _, ok := st.Failures[2]; ok {
			t.Fatal("page 2 still listed as failed after success")
		}
		got, ok := st.Successes[2]
		if !ok || got.Layout[0].Text != "hello" || got.PageNo != 2 {
			t.Fatalf("success page = %+v", got)
		}
		if st.TotalPages != 3 {
			t.Fatalf("total pages = %d", st.TotalPages)
		}
		if !st.UpdatedAt.Equal(at.Add(2 * time.Second)) {
			t.Fatalf("updated at = %v", st.UpdatedAt)
		}
	})

	t.Run("FailureAfterSuccessIgnored", func(t *testing.T) {
		s := newStore(t)
		_ = s.Begin(ctx, "fp", 1, at)
		if err := s.SaveSuccess(ctx, "fp", Page(1, "x"), at); err != nil {
			t.Fatalf("SaveSuccess: %v", err)
		}
		if _, err := s.SaveFailure(ctx, "fp", 1, "late", at); err != nil {
			t.Fatalf("SaveFailure: %v", err)
		}
		st, _ := s.Load(ctx, "fp")
		if _, ok := st.Failures[1]; ok {
			t.Fatal("failure recorded over an existing success")
		}
		if _, ok := st.Successes[1]; !ok {
			t.Fatal("success lost")
		}
	})

	t.Run("DeleteAndList", func(t *testing.T) {
		s := newStore(t)
		_ = s.Begin(ctx, "a", 1, at)
		_ = s.Begin(ctx, "b", 1, at)
		fps, err := s.Fingerprints(ctx)
		if err != nil {
			t.Fatalf("Fingerprints: %v", err)
		}
		if len(fps) != 2 || fps[0] != "a" || fps[1] != "b" {
			t.Fatalf("fingerprints = %v", fps)
		}
		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		st, err := s.Load(ctx, "a")
		if err != nil || st != nil {
			t.Fatalf("deleted state still present: %v %v", st, err)
		}
		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatalf("deleting a missing state: %v", err)
		}
	})
}
