package extractor

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrEmptyPage is returned when a page has no achievement on it.
var ErrEmptyPage = errors.New("no achievement on page")

// difficulties are the h3 classes that mark a VM's difficulty, in lookup order.
var difficulties = []string{"Easy", "Medium", "Hard"}

// Achievement is one scraped achievement page.
type Achievement struct {
	ID         int
	Nickname   string
	Date       string
	VMTitle    string
	Difficulty string // easy, medium, hard or unknown
	Rank       string // digits only; empty when unranked
}

// Header returns the fixed CSV header.
func Header() []string {
	return []string{"id", "nickname", "date", "vm_title", "difficulty", "rank"}
}

// Record returns the CSV row for a, in Header order.
func (a *Achievement) Record() []string {
	return []string{
		strconv.Itoa(a.ID),
		a.Nickname,
		a.Date,
		a.VMTitle,
		a.Difficulty,
		a.Rank,
	}
}

// Parse extracts the achievement with the given id from an HTML page.
// It returns ErrEmptyPage if the page lacks a VM title or a nickname.
func Parse(htmlBody []byte, id int) (*Achievement, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	a := &Achievement{
		ID:         id,
		Nickname:   strings.TrimSpace(doc.Find("h4.user").First().Text()),
		Date:       strippedText(doc.Find("span.date").First()),
		Difficulty: "unknown",
	}

	// The first h3 is page chrome; the VM title is the second.
	if vm := doc.Find("h3").Eq(1); vm.Length() > 0 {
		a.VMTitle = strippedText(vm)
		for _, d := range difficulties {
			if vm.HasClass(d) {
				a.Difficulty = strings.ToLower(d)
				break
			}
		}
	}

	a.Rank = parseRank(strippedText(doc.Find("p.ranked").First()))

	if a.VMTitle == "" || a.Nickname == "" {
		return nil, ErrEmptyPage
	}
	return a, nil
}

// strippedText joins every text node under sel, each trimmed, with no
// separator. Comments are skipped.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				b.WriteString(strings.TrimSpace(c.Text()))
			case "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return b.String()
}

// parseRank returns the number from text like "#12 of 340", or "".
func parseRank(text string) string {
	if !strings.HasPrefix(text, "#") {
		return ""
	}
	fields := strings.Fields(text)
	return strings.TrimPrefix(fields[0], "#")
}
