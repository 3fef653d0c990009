package cmd

import (
	"os"
	"strings"
	"testing"
)

func TestExecute_UnknownCommand(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"recall", "frobnicate"}

	err := Execute()
	if err == nil {
		t.Fatal("Execute() with unknown command should fail")
	}
	if !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("error should name the command, got %q", err)
	}
}

func TestExecute_Help(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	for _, args := range [][]string{
		{"recall"},
		{"recall", "help"},
		{"recall", "--help"},
	} {
		os.Args = args
		if err := Execute(); err != nil {
			t.Errorf("Execute(%v) = %v, want nil", args, err)
		}
	}
}

func TestExecute_Version(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"recall", "version"}
	if err := Execute(); err != nil {
		t.Errorf("Execute(version) = %v, want nil", err)
	}
}

func TestRunIngest_RequiresURL(t *testing.T) {
	if err := runIngest(nil); err == nil {
		t.Fatal("runIngest without a URL should fail")
	}
}
