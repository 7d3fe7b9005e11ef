package main

import (
	"bytes"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, &stdout, &stderr)
	if code != 0 {
		t.Errorf("run(nil) exit code = %d, want 0", code)
	}
	if stdout.Len() == 0 {
		t.Error("expected help output on stdout")
	}
}

func TestRootCommand_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"nonexistent"}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("run(nonexistent) exit code = %d, want 1", code)
	}
}

func TestSubcommandRegistration(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)

	expected := []string{"build", "hook", "embed", "verify", "init", "doctor", "preview", "version"}
	for _, name := range expected {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not found on root command", name)
		}
	}
}

func TestHookAcceptsHostArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)

	for _, c := range root.Commands() {
		if c.Name() == "hook" {
			if err := c.Args(c, []string{}); err != nil {
				t.Errorf("hook should accept 0 arguments: %v", err)
			}
			if err := c.Args(c, []string{"buildprog", "upload"}); err != nil {
				t.Errorf("hook should accept host arguments: %v", err)
			}
			return
		}
	}
	t.Fatal("hook command not found")
}

func TestEmbedRequiresTwoArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)

	for _, c := range root.Commands() {
		if c.Name() == "embed" {
			if err := c.Args(c, []string{"in.html"}); err == nil {
				t.Error("embed should reject 1 argument")
			}
			if err := c.Args(c, []string{"in.html", "out.h"}); err != nil {
				t.Errorf("embed should accept 2 arguments: %v", err)
			}
			return
		}
	}
	t.Fatal("embed command not found")
}

func TestVerifyOptionalArg(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)

	for _, c := range root.Commands() {
		if c.Name() == "verify" {
			if err := c.Args(c, []string{}); err != nil {
				t.Errorf("verify should accept 0 arguments: %v", err)
			}
			if err := c.Args(c, []string{"a.h", "b.h"}); err == nil {
				t.Error("verify should reject 2 arguments")
			}
			return
		}
	}
	t.Fatal("verify command not found")
}

func TestVersionOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"version"}, &stdout, &stderr)
	if code != 0 {
		t.Errorf("run(version) exit code = %d, want 0", code)
	}
	if !bytes.Contains(stdout.Bytes(), []byte("pgmembed")) {
		t.Errorf("version output = %q, want to contain 'pgmembed'", stdout.String())
	}
}

func TestPipelineModeString(t *testing.T) {
	if modeDirect.String() != "direct" || modeHook.String() != "hook" {
		t.Errorf("mode strings = %q, %q", modeDirect, modeHook)
	}
}
