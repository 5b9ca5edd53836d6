package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/livefir/livepart"
	"github.com/livefir/livepart/internal/dom"
	"github.com/livefir/livepart/internal/preview"
)

func engineFromConfig(path string, logger *slog.Logger) (*livepart.Engine, error) {
	opts := []livepart.Option{}
	if path != "" {
		cfg, err := livepart.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, livepart.WithConfig(cfg))
	}
	if logger != nil {
		opts = append(opts, livepart.WithLogger(logger))
	}
	return livepart.New(opts...)
}

// Demo serves the counter preview until interrupted.
func Demo(args []string) error {
	fs := pflag.NewFlagSet("demo", pflag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	configPath := fs.String("config", "", "YAML engine configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	engine, err := engineFromConfig(*configPath, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           preview.NewServer(engine, preview.NewCounter, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("preview listening", "component", "cli", "addr", *addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Compile prints the compiled markup of a template file. Static segments
// in the file are separated by {{}}; a slot written as {{list}} is declared
// as a list slot.
func Compile(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("compile", pflag.ContinueOnError)
	configPath := fs.String("config", "", "YAML engine configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("template file required")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	engine, err := engineFromConfig(*configPath, nil)
	if err != nil {
		return err
	}

	compiled, err := engine.Compile(ParseTemplate(string(data)))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "id:    %s\n", compiled.ID)
	fmt.Fprintf(out, "slots: %d\n", compiled.Slots)
	if compiled.KeySlot >= 0 {
		fmt.Fprintf(out, "key:   slot %d\n", compiled.KeySlot)
	} else if compiled.HasStaticKey {
		fmt.Fprintf(out, "key:   %q\n", compiled.StaticKey)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, dom.OuterHTML(compiled.Root))
	return nil
}

// ParseTemplate splits template file content into a template. {{}} marks a
// value slot and {{list}} a list slot.
func ParseTemplate(content string) *livepart.Template {
	content = strings.TrimRight(content, "\r\n")

	var segments []string
	var lists []int
	for {
		i := strings.Index(content, "{{")
		if i < 0 {
			break
		}
		j := strings.Index(content[i:], "}}")
		if j < 0 {
			break
		}
		directive := strings.TrimSpace(content[i+2 : i+j])
		if directive == "list" {
			lists = append(lists, len(segments))
		}
		segments = append(segments, content[:i])
		content = content[i+j+2:]
	}
	segments = append(segments, content)

	return livepart.NewTemplate(segments, livepart.WithListSlots(lists...))
}
