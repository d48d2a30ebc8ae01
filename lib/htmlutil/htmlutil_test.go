package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<ul>
			<li><a href="/viewer/view/abc123">CS 350  Operating   Systems</a></li>
			<li><a href="https://example.com/x">External</a></li>
		</ul>
	`))
	if err != nil {
		t.Fatal(err)
	}

	anchors := GetAnchors(context.Background(), doc.Find("a"))
	require.Len(t, anchors, 2)
	require.Equal(t, "CS 350 Operating Systems", anchors[0].Name)
	require.Equal(t, "/viewer/view/abc123", anchors[0].Href)
	require.Equal(t, "https://example.com/x", anchors[1].Href)
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b", CleanText(" a \n\n  b "))
}
