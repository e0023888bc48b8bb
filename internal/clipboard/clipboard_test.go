package clipboard

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func fakeLookPath(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestSelectCommand(t *testing.T) {
	cases := []struct {
		name  string
		goos  string
		found []string
		want  Command
	}{
		{"darwin pbcopy", "darwin", []string{"pbcopy"}, Command{Path: "/usr/bin/pbcopy"}},
		{"linux prefers wl-copy", "linux", []string{"xclip", "wl-copy"}, Command{Path: "/usr/bin/wl-copy"}},
		{"linux xclip", "linux", []string{"xclip", "xsel"}, Command{Path: "/usr/bin/xclip", Args: []string{"-selection", "clipboard"}}},
		{"linux xsel", "linux", []string{"xsel"}, Command{Path: "/usr/bin/xsel", Args: []string{"--clipboard", "--input"}}},
		{"freebsd xsel", "freebsd", []string{"xsel"}, Command{Path: "/usr/bin/xsel", Args: []string{"--clipboard", "--input"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectCommand(tc.goos, fakeLookPath(tc.found...))
			if err != nil {
				t.Fatalf("expected command, got error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectCommandUnavailable(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		_, err := SelectCommand(goos, fakeLookPath())
		if !errors.Is(err, ErrToolNotFound) {
			t.Fatalf("%s: expected ErrToolNotFound, got %v", goos, err)
		}
	}
}

func TestCommandRunPipesText(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	out := filepath.Join(t.TempDir(), "clip.txt")
	c := Command{Path: sh, Args: []string{"-c", "cat > " + out}}
	if err := c.Run(context.Background(), "### Chat a\n- Prompt: hi"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "### Chat a\n- Prompt: hi" {
		t.Fatalf("clipboard got %q", got)
	}
}

func TestCommandRunReportsStderr(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	c := Command{Path: sh, Args: []string{"-c", "echo no display >&2; exit 3"}}
	err = c.Run(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
