package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

func TestRecordsDeterminism(t *testing.T) {
	a := NewDefault().Records(PostModel(), 20)
	b := NewDefault().Records(PostModel(), 20)
	for i := range a {
		va, _ := a[i].Get("views")
		vb, _ := b[i].Get("views")
		if a[i].ID != b[i].ID || va != vb {
			t.Fatalf("record %d differs between runs", i)
		}
	}
	AssertNoDuplicateIDs(t, a)
	if a[3].ID != "Post-0003" {
		t.Errorf("expected Post-0003, got %s", a[3].ID)
	}
}

func TestMemoryPaging(t *testing.T) {
	ctx := context.Background()
	post := PostModel()
	mem := NewMemory(post)
	mem.Seed("Post", NewDefault().Records(post, 120))

	n, err := mem.FetchCount(ctx, post, nil)
	if err != nil || n != 120 {
		t.Fatalf("expected 120, got %d (%v)", n, err)
	}
	page, err := mem.FetchPage(ctx, post, nil, model.DefaultOrder(), 100, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 20 || page[0].ID != "Post-0100" {
		t.Errorf("unexpected tail page: %d records", len(page))
	}
	page, _ = mem.FetchPage(ctx, post, nil, model.OrderBy{FieldName: "id", Direction: model.DESC}, 0, 1)
	if page[0].ID != "Post-0119" {
		t.Errorf("expected Post-0119 first in DESC order, got %s", page[0].ID)
	}
	empty, err := mem.FetchPage(ctx, post, nil, model.DefaultOrder(), 500, 50)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %d (%v)", len(empty), err)
	}
}

func TestMemoryFilterAndFailures(t *testing.T) {
	ctx := context.Background()
	post := PostModel()
	mem := NewMemory(post)
	mem.Seed("Post", NewDefault().Records(post, 15))

	n, _ := mem.FetchCount(ctx, post, model.Filter{"title": "title 1"})
	if n != 6 { // title 1, title 10..14
		t.Errorf("expected 6 matches, got %d", n)
	}

	mem.FailDelete["Post-0001"] = errors.New("graphql: permission denied, invalid token")
	if err := mem.Delete(ctx, post, "Post-0001"); !errors.Is(err, api.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := mem.Delete(ctx, post, "missing"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if mem.Calls("Delete") != 2 {
		t.Errorf("expected 2 delete calls, got %d", mem.Calls("Delete"))
	}
}
