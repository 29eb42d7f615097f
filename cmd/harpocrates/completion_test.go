package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestWriteCompletion(t *testing.T) {
	for _, shell := range completionShells() {
		t.Run(shell, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeCompletion(rootCmd, shell, &buf); err != nil {
				t.Fatalf("writeCompletion(%q) error = %v", shell, err)
			}
			if !strings.Contains(buf.String(), "harpocrates") {
				t.Errorf("%s script does not mention the binary name", shell)
			}
		})
	}

	if err := writeCompletion(rootCmd, "tcsh", &bytes.Buffer{}); err == nil {
		t.Error("writeCompletion() accepted an unsupported shell")
	}
}

func TestCompletionShells(t *testing.T) {
	want := []string{"bash", "fish", "powershell", "zsh"}
	got := completionShells()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("completionShells() = %v, want %v", got, want)
	}
}

func TestSelectorCommandsCompleteTitles(t *testing.T) {
	for _, cmd := range []string{"get", "update", "delete", "copy"} {
		c, _, err := rootCmd.Find([]string{cmd})
		if err != nil {
			t.Fatalf("Find(%q) error = %v", cmd, err)
		}
		if c.ValidArgsFunction == nil {
			t.Errorf("%s has no title completion", cmd)
		}
	}
}

func TestCompleteEntryTitlesDisabled(t *testing.T) {
	t.Setenv(envCompletion, "")
	titles, directive := completeEntryTitles(nil, nil, "Gi")
	if titles != nil {
		t.Errorf("titles = %v, want none while dynamic completion is off", titles)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v, want NoFileComp", directive)
	}
}
