package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemplate(t *testing.T, body string) *Renderer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.html")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return New(path)
}

func TestRenderSubstitutesAllMarkers(t *testing.T) {
	r := writeTemplate(t, `<html><script>var data=<!--BOARD_DATA-->;</script>`+
		`<p>board <!--BOARD_ID--> updated <!--LAST_UPDATE_TIME--></p></html>`)

	out, err := r.Render([]string{"a", "b"}, 2, "t1")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `var data=["a","b"];`) {
		t.Fatalf("board data not substituted: %s", out)
	}
	if !strings.Contains(out, "board 2 updated t1") {
		t.Fatalf("id/timestamp not substituted: %s", out)
	}
	if strings.Contains(out, "<!--") {
		t.Fatalf("marker left behind: %s", out)
	}
}

func TestRenderReplacesEachMarkerOnce(t *testing.T) {
	r := writeTemplate(t, "<!--BOARD_ID-->/<!--BOARD_ID-->")

	out, err := r.Render(nil, 7, "t")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "7/<!--BOARD_ID-->" {
		t.Fatalf("want second occurrence untouched, got %q", out)
	}
}

func TestRenderEmptyBoardIsEmptyArray(t *testing.T) {
	r := writeTemplate(t, "<!--BOARD_DATA-->")

	out, err := r.Render(nil, 0, "t")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "[]" {
		t.Fatalf("want [], got %q", out)
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "nope.html"))
	if _, err := r.Render([]string{"a"}, 0, "t"); err == nil {
		t.Fatal("want error for missing template")
	}
}

func TestRenderPicksUpTemplateEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.html")
	if err := os.WriteFile(path, []byte("v1 <!--BOARD_ID-->"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := New(path)

	out, err := r.Render(nil, 1, "t")
	if err != nil || !strings.HasPrefix(out, "v1") {
		t.Fatalf("first render: %q err=%v", out, err)
	}

	if err := os.WriteFile(path, []byte("v2 <!--BOARD_ID-->"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = r.Render(nil, 1, "t")
	if err != nil || !strings.HasPrefix(out, "v2") {
		t.Fatalf("render after edit: %q err=%v", out, err)
	}
}
