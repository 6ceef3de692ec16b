package e2e

import (
	"strings"
	"testing"
)

func TestBuildCorpus_oneCasePerSection(t *testing.T) {
	c := BuildCorpus()
	if len(c.Sections) < 20 {
		t.Fatalf("expected a sizeable corpus, got %d sections", len(c.Sections))
	}
	if len(c.Cases) != len(c.Sections) {
		t.Errorf("cases = %d, sections = %d", len(c.Cases), len(c.Sections))
	}
	for i, tc := range c.Cases {
		if tc.Query == "" || tc.Signature == "" {
			t.Errorf("case %d is incomplete: %+v", i, tc)
		}
	}
}

func TestBuildCorpus_signaturesAreUnique(t *testing.T) {
	c := BuildCorpus()
	for _, s := range c.Sections {
		if got := c.sectionsContaining(s.Signature); len(got) != 1 || got[0] != s.Title {
			t.Errorf("signature %q appears in %v, want only %q", s.Signature, got, s.Title)
		}
	}
}

func TestCorpus_HTML(t *testing.T) {
	c := BuildCorpus()
	page := c.HTML()
	for _, s := range c.Sections {
		if !strings.Contains(page, "<h2>"+s.Title+"</h2>") {
			t.Errorf("page is missing section %q", s.Title)
		}
	}
	if !strings.Contains(page, "<title>Field Notes</title>") {
		t.Error("page is missing its title")
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text, word string
		want       bool
	}{
		{"Honey bees and pollination", "Pollination", true},
		{"A glacier flows", "magma", false},
		{"", "kiln", false},
	}
	for _, tt := range tests {
		if got := containsWord(tt.text, tt.word); got != tt.want {
			t.Errorf("containsWord(%q, %q) = %v, want %v", tt.text, tt.word, got, tt.want)
		}
	}
}
