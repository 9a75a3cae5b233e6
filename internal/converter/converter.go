package converter

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
)

// chrome is the site furniture around the achievement card.
const chrome = "nav, .navbar, header, footer, aside, .sidebar, .modal, script, style, noscript, iframe, form, button, svg"

// Render turns an achievement page into markdown with the navigation,
// footer and scripts stripped, leaving the card the parser reads from.
// Links are made absolute against the page's host.
func Render(body []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}
	doc.Find(chrome).Remove()

	card, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serialising page: %w", err)
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(card, converter.WithDomain(origin(pageURL)))
	if err != nil {
		return "", fmt.Errorf("html-to-markdown conversion: %w", err)
	}
	return tidy(md), nil
}

// tidy trims trailing spaces and keeps at most one blank line in a row.
func tidy(md string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
