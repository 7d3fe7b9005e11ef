package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/preview"
)

// syncBuffer guards a bytes.Buffer shared with the server goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServePreview(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "index.html")
	header := filepath.Join(dir, "index_html.h")
	if err := os.WriteFile(src, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := artifact.Embed(src, header); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: preview.New(header, nil)}
	done := make(chan error, 1)
	go func() { done <- servePreview(ctx, &out, srv, header) }()

	addrRe := regexp.MustCompile(`http://(\S+)`)
	var url string
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		if m := addrRe.FindStringSubmatch(out.String()); m != nil {
			url = "http://" + m[1] + "/"
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if url == "" {
		t.Fatalf("server never announced its address; output: %q", out.String())
	}

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// The transport transparently decodes gzip it asked for itself.
	if !resp.Uncompressed || string(body) != "<html></html>" {
		t.Errorf("body = %q (uncompressed=%v)", body, resp.Uncompressed)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("servePreview: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	if !strings.Contains(out.String(), "Previewing "+header) {
		t.Errorf("output = %q", out.String())
	}
}

func TestServePreview_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "256.0.0.1:0"}
	var out bytes.Buffer
	if err := servePreview(context.Background(), &out, srv, "x.h"); err == nil {
		t.Error("expected listen error")
	}
}
