package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Devon-White/achievement-scraper/internal/fetcher"
	"github.com/Devon-White/achievement-scraper/internal/writer"
)

func achievementServer(t *testing.T, maxID int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.URL.Query().Get("achievement"))
		if id < 1 || id > maxID {
			fmt.Fprint(w, `<html><body><h3>HackMyVM</h3><p>Achievement <b>not found</b></p></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body><h3>HackMyVM</h3><h4 class="user">user%d</h4>
<span class="date">2024-05-0%d</span><h3 class="Hard">Box%d</h3><p class="ranked">#%d of 9</p></body></html>`, id, id, id, id)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInspect(t *testing.T) {
	srv := achievementServer(t, 3)
	f := fetcher.New(srv.URL+"/achievement/?achievement={id}", "test", 0, 5*time.Second)

	var out bytes.Buffer
	if err := inspect(context.Background(), f, 2, &out); err != nil {
		t.Fatal(err)
	}
	want := "id,nickname,date,vm_title,difficulty,rank\n2,user2,2024-05-02,Box2,hard,2\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := inspect(context.Background(), f, 9, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No achievement found") || !strings.Contains(out.String(), "**not found**") {
		t.Errorf("empty page output = %q", out.String())
	}
}

func TestInspectCancelled(t *testing.T) {
	srv := achievementServer(t, 3)
	f := fetcher.New(srv.URL+"/achievement/?achievement={id}", "test", 0, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := inspect(ctx, f, 1, &out); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRootCommand(t *testing.T) {
	srv := achievementServer(t, 4)
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	// Verbosity sticks to the shared flag set, so the quiet run goes first.
	tests := []struct {
		name    string
		verbose bool
	}{
		{"quiet", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), "out", "achievements.csv")
			args := []string{
				"--start", "1",
				"--output", output,
				"--empty-limit", "2",
				"--delay", "0",
				"--base-url", srv.URL + "/achievement/?achievement={id}",
			}
			if tt.verbose {
				args = append(args, "-v")
			}

			var out, logs bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&logs)
			rootCmd.SetArgs(args)
			if err := rootCmd.Execute(); err != nil {
				t.Fatalf("Execute: %v", err)
			}

			if got := out.String(); got != "New records added: 4\n" {
				t.Errorf("stdout = %q", got)
			}
			if got := writer.LastID(output); got != 4 {
				t.Errorf("LastID = %d, want 4", got)
			}
			if !strings.Contains(logs.String(), "achievement found") {
				t.Errorf("missing found lines in logs:\n%s", logs.String())
			}
			if got := strings.Contains(logs.String(), `msg="empty page"`); got != tt.verbose {
				t.Errorf("empty page logged = %v, want %v:\n%s", got, tt.verbose, logs.String())
			}
		})
	}
}
