package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/julianknutsen/pgmembed/internal/preview"
	"github.com/spf13/cobra"
)

func newPreviewCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the generated header the way the firmware does",
		Long: `Serve the page embedded in the generated header over HTTP.

The gzip bytes are sent exactly as the firmware sends them, with
Content-Encoding: gzip. The header is re-read on every request, so
running 'pgmembed build' in another terminal shows up on reload.

Examples:
  pgmembed preview
  pgmembed preview --port 9000 --output src/index_html.h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd, stdout, stderr)
		},
	}
	cmd.Flags().Int("port", 8080, "Port to listen on")
	cmd.Flags().String("bind", "localhost", "Address to bind")
	return cmd
}

func runPreview(cmd *cobra.Command, stdout, _ io.Writer) error {
	port, _ := cmd.Flags().GetInt("port")
	bind, _ := cmd.Flags().GetString("bind")

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(bind, strconv.Itoa(port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           preview.New(cfg.Output, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return servePreview(cmd.Context(), stdout, srv, cfg.Output)
}

// servePreview runs srv until ctx is canceled, then shuts it down.
func servePreview(ctx context.Context, stdout io.Writer, srv *http.Server, header string) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", srv.Addr, err)
	}
	fmt.Fprintf(stdout, "Previewing %s on http://%s\n", header, ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down preview server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
