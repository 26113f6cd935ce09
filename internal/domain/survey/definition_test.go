package survey

import (
	"strings"
	"testing"
)

const twoStageYAML = `
title: test
choices:
  - {value: 1, text: "one"}
  - {value: 5, text: "five"}
stages:
  - name: "Stage A"
    title: "1: A"
    questions:
      - {name: a1, capability: "**Cap A1**: first"}
      - {name: a2, capability: "Cap A2"}
  - name: "Stage B"
    title: "2: B"
    questions:
      - {name: b1, capability: "Cap B1"}
benchmarks:
  "Stage A": {peer_average: 5, best_in_class: 8}
`

func TestDefaultDefinitionLoads(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if got := d.TotalQuestions(); got != 38 {
		t.Fatalf("TotalQuestions: want 38 got %d", got)
	}
	if len(d.Stages) != 6 {
		t.Fatalf("stages: want 6 got %d", len(d.Stages))
	}
	for i, st := range d.Stages {
		if st.Order != i+1 {
			t.Fatalf("stage %q order: want %d got %d", st.Name, i+1, st.Order)
		}
		if _, ok := d.Benchmark(st.Name); !ok {
			t.Fatalf("missing benchmark for %q", st.Name)
		}
	}
	_, q, ok := d.Question("s1q1")
	if !ok {
		t.Fatalf("Question s1q1 not found")
	}
	if q.ChoiceText(5) != "Optimized" {
		t.Fatalf("default choices not applied: %+v", q.Choices)
	}
}

func TestParseDerivesOrderAndPage(t *testing.T) {
	d, err := Parse([]byte(twoStageYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st, ok := d.StageByName("Stage B")
	if !ok {
		t.Fatalf("StageByName: missing")
	}
	if st.Order != 2 || st.Page != "stage_2" {
		t.Fatalf("unexpected stage B: order=%d page=%q", st.Order, st.Page)
	}
	if d.StageIndex("Stage A") != 0 || d.StageIndex("nope") != -1 {
		t.Fatalf("StageIndex mismatch")
	}
}

func TestParseRejectsDuplicateQuestionNames(t *testing.T) {
	bad := strings.Replace(twoStageYAML, "name: b1", "name: a1", 1)
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatalf("expected duplicate question error")
	}
}

func TestCapabilityIndexMatchesRawAndStripped(t *testing.T) {
	d, err := Parse([]byte(twoStageYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	idx := NewCapabilityIndex(d)

	for _, capText := range []string{"**Cap A1**: first", "Cap A1: first", "  Cap A1: first  "} {
		name, ok := idx.Lookup("Stage A", capText)
		if !ok || name != "a1" {
			t.Fatalf("Lookup(%q): want a1 got %q ok=%v", capText, name, ok)
		}
	}
	if name, ok := idx.Lookup("Renamed Stage", "Cap B1"); !ok || name != "b1" {
		t.Fatalf("global fallback: want b1 got %q ok=%v", name, ok)
	}
	if _, ok := idx.Lookup("Stage A", "unknown capability"); ok {
		t.Fatalf("unknown capability should not resolve")
	}
}

func TestValidRating(t *testing.T) {
	for v, want := range map[int]bool{0: false, 1: true, 3: true, 5: true, 6: false, -1: false} {
		if ValidRating(v) != want {
			t.Fatalf("ValidRating(%d): want %v", v, want)
		}
	}
}
