package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/stream"
	"github.com/samsaffron/streammd/internal/term"
)

// resetPlayFlags restores the play flag variables after a test that
// sets them.
func resetPlayFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		playText = ""
		playScript = ""
		playClipboard = false
	})
}

func playTestConfig() *config.Config {
	return &config.Config{Play: config.PlayConfig{CadenceMs: 20}}
}

func newPlayTestCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetErr(&strings.Builder{})
	return cmd
}

func TestPlaySourceRejectsArgWithFlagSources(t *testing.T) {
	resetPlayFlags(t)
	playText = "# hi"

	_, _, _, err := playSource(newPlayTestCmd(), playTestConfig(), []string{"notes.md"})
	if err == nil {
		t.Fatal("file argument combined with --text should error")
	}
}

func TestPlaySourceLiteralText(t *testing.T) {
	resetPlayFlags(t)
	playText = "# Hello **world**"

	src, label, prompt, err := playSource(newPlayTestCmd(), playTestConfig(), nil)
	if err != nil {
		t.Fatalf("playSource: %v", err)
	}
	if _, ok := src.(*stream.Playback); !ok {
		t.Errorf("source = %T, want *stream.Playback", src)
	}
	if label != "text" {
		t.Errorf("label = %q, want %q", label, "text")
	}
	if prompt != playText {
		t.Errorf("prompt = %q, want the literal text", prompt)
	}
}

func TestPlaySourceScriptWinsOverText(t *testing.T) {
	resetPlayFlags(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.yaml")
	script := "steps:\n  - chunk: \"# Title\"\n    delay_ms: 1\n"
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		t.Fatal(err)
	}
	playScript = path
	playText = "ignored"

	src, label, prompt, err := playSource(newPlayTestCmd(), playTestConfig(), nil)
	if err != nil {
		t.Fatalf("playSource: %v", err)
	}
	if _, ok := src.(*stream.Script); !ok {
		t.Errorf("source = %T, want *stream.Script", src)
	}
	if label != "chunks.yaml" {
		t.Errorf("label = %q, want the script base name", label)
	}
	if prompt != path {
		t.Errorf("prompt = %q, want the script path", prompt)
	}
}

func TestPlaySourceReadsFileArgument(t *testing.T) {
	resetPlayFlags(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte("# Doc\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src, label, prompt, err := playSource(newPlayTestCmd(), playTestConfig(), []string{path})
	if err != nil {
		t.Fatalf("playSource: %v", err)
	}
	if _, ok := src.(*stream.Playback); !ok {
		t.Errorf("source = %T, want *stream.Playback", src)
	}
	if label != "doc.md" {
		t.Errorf("label = %q, want the file base name", label)
	}
	if prompt != path {
		t.Errorf("prompt = %q, want the file path", prompt)
	}
}

func TestPlaySourceMissingFile(t *testing.T) {
	resetPlayFlags(t)

	_, _, _, err := playSource(newPlayTestCmd(), playTestConfig(), []string{filepath.Join(t.TempDir(), "gone.md")})
	if err == nil {
		t.Fatal("missing file should error")
	}
}

func TestPlaySourcePipedStdin(t *testing.T) {
	if term.IsTerminal(os.Stdin) {
		t.Skip("requires non-terminal stdin")
	}
	resetPlayFlags(t)

	cmd := newPlayTestCmd()
	cmd.SetIn(strings.NewReader("piped **markdown**"))

	src, label, _, err := playSource(cmd, playTestConfig(), nil)
	if err != nil {
		t.Fatalf("playSource: %v", err)
	}
	if _, ok := src.(*stream.Playback); !ok {
		t.Errorf("source = %T, want *stream.Playback", src)
	}
	if label != "stdin" {
		t.Errorf("label = %q, want %q", label, "stdin")
	}
}

func TestExpandPlayPattern(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.md", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("plain path passes through", func(t *testing.T) {
		got, err := expandPlayPattern(newPlayTestCmd(), "no/such/file.md")
		if err != nil {
			t.Fatalf("expandPlayPattern: %v", err)
		}
		if got != "no/such/file.md" {
			t.Errorf("path = %q, want it unchanged", got)
		}
	})

	t.Run("glob picks first match and warns", func(t *testing.T) {
		cmd := newPlayTestCmd()
		var stderr strings.Builder
		cmd.SetErr(&stderr)

		got, err := expandPlayPattern(cmd, filepath.Join(dir, "*.md"))
		if err != nil {
			t.Fatalf("expandPlayPattern: %v", err)
		}
		if got != filepath.Join(dir, "a.md") {
			t.Errorf("match = %q, want the first sorted match", got)
		}
		if !strings.Contains(stderr.String(), "1 other matches ignored") {
			t.Errorf("stderr = %q, want a skipped-matches note", stderr.String())
		}
	})

	t.Run("glob with no matches errors", func(t *testing.T) {
		if _, err := expandPlayPattern(newPlayTestCmd(), filepath.Join(dir, "*.rst")); err == nil {
			t.Fatal("pattern matching nothing should error")
		}
	})
}
