//go:build integration

// Package integration runs the pgmembed binary against a real npm project.
// The project's build script is plain node, so no packages are installed
// and no network is required.
package integration

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianknutsen/pgmembed/internal/artifact"
)

var pgmembedBinary string

func TestMain(m *testing.M) {
	for _, tool := range []string{"node", "npm"} {
		if _, err := exec.LookPath(tool); err != nil {
			fmt.Fprintf(os.Stderr, "%s not found in PATH, skipping integration tests\n", tool)
			os.Exit(1)
		}
	}

	tmpDir, err := os.MkdirTemp("", "pgmembed-integration-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	pgmembedBinary = filepath.Join(tmpDir, "pgmembed")
	cmd := exec.Command("go", "build", "-o", pgmembedBinary, "./cmd/pgmembed")
	cmd.Dir = findRepoRoot()
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building pgmembed binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// findRepoRoot walks up from the test directory to the one holding go.mod.
func findRepoRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	wd, _ := os.Getwd()
	return filepath.Join(wd, "..", "..")
}

const buildScript = `const fs = require("fs");
const body = "<html><body>" + "<p>LoRa node status</p>".repeat(200) + "</body></html>";
fs.mkdirSync("dist", { recursive: true });
fs.writeFileSync("dist/index.html", body);
`

// newProject lays out a firmware project with a node-built web directory.
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	web := filepath.Join(root, "web")
	if err := os.MkdirAll(web, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(web, "package.json"): `{"name": "web", "private": true, "scripts": {"build": "node build.js"}}`,
		filepath.Join(web, "build.js"):     buildScript,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func runPgmembed(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(pgmembedBinary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir(), "NO_COLOR=1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func readHeader(t *testing.T, path string) *artifact.Header {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	h, err := artifact.Parse(f)
	if err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return h
}

func TestBuildWithNpm(t *testing.T) {
	root := newProject(t)
	stdout, stderr, err := runPgmembed(t, root, "build")
	if err != nil {
		t.Fatalf("pgmembed build failed: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}
	if !strings.Contains(stdout, "Wrote include/index_html.h") {
		t.Errorf("stdout = %s", stdout)
	}

	built, err := os.ReadFile(filepath.Join(root, "web", "dist", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	h := readHeader(t, filepath.Join(root, "include", "index_html.h"))
	if h.OriginalBytes != len(built) {
		t.Errorf("OriginalBytes = %d, want %d", h.OriginalBytes, len(built))
	}
	if h.CompressedBytes >= len(built) {
		t.Errorf("repetitive page did not compress: %d >= %d", h.CompressedBytes, len(built))
	}

	// decode with the standard library as an independent gzip reader
	zr, err := gzip.NewReader(bytes.NewReader(h.Data))
	if err != nil {
		t.Fatal(err)
	}
	page, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(page, built) {
		t.Error("embedded page differs from the npm build output")
	}

	if _, stderr, err := runPgmembed(t, root, "verify"); err != nil {
		t.Errorf("verify failed: %v\n%s", err, stderr)
	}
}

func TestHookWithNpm(t *testing.T) {
	root := newProject(t)
	stdout, stderr, err := runPgmembed(t, root, "hook", "buildprog")
	if err != nil {
		t.Fatalf("pgmembed hook failed: %v\nstderr: %s", err, stderr)
	}
	if stdout != "" {
		t.Errorf("hook wrote to stdout: %q", stdout)
	}
	if !strings.Contains(stderr, "Embedded front-end artifact") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestHookFailsOnBrokenBuild(t *testing.T) {
	root := newProject(t)
	broken := filepath.Join(root, "web", "build.js")
	if err := os.WriteFile(broken, []byte(`process.exit(2);`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, stderr, err := runPgmembed(t, root, "hook")
	if err == nil {
		t.Fatal("hook succeeded on a failing npm build")
	}
	if !strings.Contains(stderr, "front-end build failed") {
		t.Errorf("stderr = %s", stderr)
	}
	if _, err := os.Stat(filepath.Join(root, "include", "index_html.h")); err == nil {
		t.Error("header written despite the failed build")
	}
}

func TestPreviewServesBuild(t *testing.T) {
	root := newProject(t)
	if _, stderr, err := runPgmembed(t, root, "build"); err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cmd := exec.Command(pgmembedBinary, "preview", "--bind", "127.0.0.1", "--port", fmt.Sprint(port))
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		_ = cmd.Wait()
	})

	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	var resp *http.Response
	for deadline := time.Now().Add(10 * time.Second); time.Now().Before(deadline); time.Sleep(50 * time.Millisecond) {
		if resp, err = http.Get(url); err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("preview never came up: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "LoRa node status") {
		t.Errorf("body does not contain the built page: %.80q", body)
	}
}
