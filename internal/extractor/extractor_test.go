package extractor

import (
	"errors"
	"reflect"
	"testing"
)

const fullPage = `<html><body>
<h3>HackMyVM</h3>
<h4 class="user"> sml </h4>
<span class="date">2024-03-01</span>
<h3 class="vm Medium">Quick</h3>
<p class="ranked">#12 of 340 players</p>
</body></html>`

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		html string
		want *Achievement
		err  error
	}{
		{
			name: "full page",
			html: fullPage,
			want: &Achievement{ID: 7, Nickname: "sml", Date: "2024-03-01", VMTitle: "Quick", Difficulty: "medium", Rank: "12"},
		},
		{
			name: "no difficulty class and unranked",
			html: `<h3>Site</h3><h4 class="user">bob</h4><h3>Gift</h3><p class="ranked">unranked</p>`,
			want: &Achievement{ID: 7, Nickname: "bob", VMTitle: "Gift", Difficulty: "unknown"},
		},
		{
			name: "hard vm no rank element",
			html: `<h3>Site</h3><h4 class="user">eve</h4><h3 class="Hard">Vulny</h3>`,
			want: &Achievement{ID: 7, Nickname: "eve", VMTitle: "Vulny", Difficulty: "hard"},
		},
		{
			name: "nested markup inside date and title",
			html: `<h3>Site</h3>
<h4 class="user">
  bob
</h4>
<span class="date"><i></i> 2024-03-01 <small>(UTC)</small></span>
<h3 class="Easy">Gift <span>new</span><!-- badge --></h3>
<p class="ranked">
  #4 of 20
</p>`,
			want: &Achievement{ID: 7, Nickname: "bob", Date: "2024-03-01(UTC)", VMTitle: "Giftnew", Difficulty: "easy", Rank: "4"},
		},
		{
			name: "only one h3",
			html: `<h3>Site</h3><h4 class="user">bob</h4>`,
			err:  ErrEmptyPage,
		},
		{
			name: "missing nickname",
			html: `<h3>Site</h3><h3 class="Easy">Gift</h3>`,
			err:  ErrEmptyPage,
		},
		{
			name: "empty document",
			html: ``,
			err:  ErrEmptyPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.html), 7)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRecordMatchesHeader(t *testing.T) {
	a := &Achievement{ID: 100, Nickname: "n", Date: "d", VMTitle: "v", Difficulty: "easy", Rank: "1"}
	rec := a.Record()
	if len(rec) != len(Header()) {
		t.Fatalf("record has %d fields, header has %d", len(rec), len(Header()))
	}
	if rec[0] != "100" {
		t.Errorf("id field = %q", rec[0])
	}
}
