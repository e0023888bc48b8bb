package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	atotto "github.com/atotto/clipboard"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type Command struct {
	Path string
	Args []string
}

// SelectCommand picks the first clipboard tool available on goos.
func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	var candidates []Command
	switch goos {
	case "darwin":
		candidates = []Command{{Path: "pbcopy"}}
	case "linux", "freebsd", "openbsd", "netbsd":
		candidates = []Command{
			{Path: "wl-copy"},
			{Path: "xclip", Args: []string{"-selection", "clipboard"}},
			{Path: "xsel", Args: []string{"--clipboard", "--input"}},
		}
	}
	for _, c := range candidates {
		if path, err := lookPath(c.Path); err == nil {
			return Command{Path: path, Args: c.Args}, nil
		}
	}
	return Command{}, ErrToolNotFound
}

// Run pipes text into the command. Failures carry the tool's stderr.
func (c Command) Run(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		name := filepath.Base(c.Path)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Copier writes text to the system clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// System copies through the platform's clipboard command.
type System struct{}

func (System) Copy(ctx context.Context, text string) error {
	return Copy(ctx, text)
}

// Copy uses the first known clipboard command, falling back to the platform API
// where no command is installed (Windows, mostly).
func Copy(ctx context.Context, text string) error {
	c, err := SelectCommand(runtime.GOOS, exec.LookPath)
	if errors.Is(err, ErrToolNotFound) {
		if atotto.Unsupported {
			return ErrToolNotFound
		}
		return atotto.WriteAll(text)
	}
	if err != nil {
		return err
	}
	return c.Run(ctx, text)
}
