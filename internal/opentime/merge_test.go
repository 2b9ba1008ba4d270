package opentime

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func task(id, title string) Item {
	return Item{ID: id, Title: title, Body: &Task{Status: StatusTodo}}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestMergeKeepsOrderAndReplacesInPlace(t *testing.T) {
	prior := []Item{task("a", "A"), task("b", "B old"), task("c", "C")}
	fresh := []Item{task("d", "D"), task("b", "B new"), task("e", "E")}
	got := Merge(prior, fresh)

	want := []string{"a", "b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("len(Merge) = %d, want %d", len(got), len(want))
	}
	for i, id := range ids(got) {
		if id != want[i] {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
	if got[1].Title != "B new" {
		t.Fatalf("fresh item should win, got %q", got[1].Title)
	}
}

func TestMergeEmptySides(t *testing.T) {
	fresh := []Item{task("a", "A")}
	if got := Merge(nil, fresh); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("Merge(nil, fresh) = %v", ids(got))
	}
	prior := []Item{task("x", "X"), task("y", "Y")}
	if got := Merge(prior, nil); len(got) != 2 || got[1].ID != "y" {
		t.Fatalf("Merge(prior, nil) = %v", ids(got))
	}
}

func TestMergeCarriesUnmodelledKeys(t *testing.T) {
	pinned := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}
	color := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "teal"}
	newColor := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "red"}

	old := task("a", "A")
	old.Extra = []Extension{{Key: "x_pinned", Value: pinned}, {Key: "x_color", Value: color}}
	upd := task("a", "A renamed")
	upd.Extra = []Extension{{Key: "x_color", Value: newColor}}

	got := Merge([]Item{old}, []Item{upd})
	if len(got) != 1 {
		t.Fatalf("expected one item, got %d", len(got))
	}
	extra := got[0].Extra
	if len(extra) != 2 {
		t.Fatalf("expected 2 extensions, got %#v", extra)
	}
	if extra[0].Key != "x_color" || extra[0].Value.Value != "red" {
		t.Fatalf("fresh extension should win, got %#v", extra[0])
	}
	if extra[1].Key != "x_pinned" {
		t.Fatalf("prior extension should be carried, got %#v", extra[1])
	}
}

func TestMergeCollapsesDuplicatePriorIDs(t *testing.T) {
	prior := []Item{task("a", "first"), task("a", "second")}
	got := Merge(prior, nil)
	if len(got) != 1 || got[0].Title != "second" {
		t.Fatalf("expected last duplicate to win, got %#v", got)
	}
}
