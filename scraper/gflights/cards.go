package gflights

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"flight-sniper/models"
)

const currencyMarker = "R$"

// asciiSpace collapses layout whitespace but leaves NBSP, which may group thousands.
var asciiSpace = regexp.MustCompile(`[ \t\r\n]+`)

// cardSelectors are tried in order; the first one that yields priced cards wins.
var cardSelectors = []string{
	`li.pIav2d`,
	`[role="main"] ul li`,
	`ul li`,
}

// ExtractCards splits a rendered results page into one CandidateBlock per
// offer card, keeping page order. When no list structure is found it falls
// back to every innermost element whose text mentions the currency.
func ExtractCards(r io.Reader) ([]models.CandidateBlock, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	for _, sel := range cardSelectors {
		var blocks []models.CandidateBlock
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			// Outer list items that only wrap other priced items are skipped.
			if s.Find("li").FilterFunction(hasCurrency).Length() > 0 {
				return
			}
			if text := nodeText(s); strings.Contains(text, currencyMarker) {
				blocks = append(blocks, models.CandidateBlock(text))
			}
		})
		if len(blocks) > 0 {
			return blocks, nil
		}
	}

	var blocks []models.CandidateBlock
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		if !hasCurrency(0, s) {
			return
		}
		if s.Children().FilterFunction(hasCurrency).Length() > 0 {
			return
		}
		blocks = append(blocks, models.CandidateBlock(nodeText(s)))
	})
	return blocks, nil
}

func hasCurrency(_ int, s *goquery.Selection) bool {
	return strings.Contains(s.Text(), currencyMarker)
}

// nodeText joins the text nodes under s with single spaces, so adjacent
// spans such as a time and a price never run together.
func nodeText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return asciiSpace.ReplaceAllString(strings.Join(parts, " "), " ")
}
