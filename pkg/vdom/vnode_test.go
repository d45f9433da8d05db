package vdom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestFromNodeAndClone(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div id="x" class="a b"></div>`))
	if err != nil {
		t.Fatal(err)
	}
	var div *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" {
			div = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	v := FromNode(div, "h1")
	if v.Tag != "div" || v.ClassName() != "a b" || v.Props["id"] != "x" {
		t.Errorf("FromNode() = %+v", v)
	}

	c := v.Clone()
	c.Props["id"] = "y"
	if v.Props["id"] != "x" {
		t.Error("Clone should not share props")
	}
}

func TestIsInternalProp(t *testing.T) {
	tests := map[string]bool{
		"onclick":     true,
		"key":         true,
		InnerHTMLProp: true,
		"class":       false,
		"one-time":    false,
		"on":          false,
	}
	for key, want := range tests {
		if got := IsInternalProp(key); got != want {
			t.Errorf("IsInternalProp(%q) = %v, want %v", key, got, want)
		}
	}
}
