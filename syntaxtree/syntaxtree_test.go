package syntaxtree

import (
	"context"
	"testing"

	"github.com/toyinlola/commitgroup/diffmodel"
)

func TestParse_Go(t *testing.T) {
	p := NewProvider()
	defer p.Close()

	src := []byte("package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	tree, err := p.Parse(context.Background(), src, diffmodel.LangGo)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	if tree.Root == nil {
		t.Fatal("expected a root node")
	}
	if tree.Root.ChildCount() == 0 {
		t.Fatal("expected the root node to have children")
	}
	if tree.Root.EndByte() != uint32(len(src)) {
		t.Errorf("root EndByte = %d, want %d", tree.Root.EndByte(), len(src))
	}
}

func TestParse_FallbackGrammar(t *testing.T) {
	p := NewProvider()
	defer p.Close()

	src := []byte("plain text with no recognized grammar\n")
	tree, err := p.Parse(context.Background(), src, diffmodel.LangText)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	if tree.Root == nil {
		t.Fatal("expected a root node even for the fallback grammar")
	}
}

func TestParse_ReusesParserPerLanguage(t *testing.T) {
	p := NewProvider()
	defer p.Close()

	for i := 0; i < 2; i++ {
		tree, err := p.Parse(context.Background(), []byte("package main\n"), diffmodel.LangGo)
		if err != nil {
			t.Fatalf("Parse iteration %d: %v", i, err)
		}
		tree.Close()
	}
	if len(p.parsers) != 1 {
		t.Errorf("expected exactly 1 cached parser, got %d", len(p.parsers))
	}
}

func TestChildTraversal(t *testing.T) {
	p := NewProvider()
	defer p.Close()

	src := []byte("package main\n\nfunc a() {}\nfunc b() {}\n")
	tree, err := p.Parse(context.Background(), src, diffmodel.LangGo)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	var walk func(n Node) int
	walk = func(n Node) int {
		count := 1
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			count += walk(c)
		}
		return count
	}
	if walk(tree.Root) < 3 {
		t.Error("expected the tree to contain multiple nodes for two function declarations")
	}
}
