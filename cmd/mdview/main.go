package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/mdview/mdview"
	"github.com/mdview/mdview/assets"
	"github.com/mdview/mdview/fs"
	"github.com/mdview/mdview/github"
	"github.com/mdview/mdview/goldmark"
	mdhttp "github.com/mdview/mdview/http"
	mdslog "github.com/mdview/mdview/slog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Instance directory holding settings and the style cache. Set before
	// calling Run().
	InstanceDir string

	// Server assembled by Run, exposed for end-to-end testing.
	Server *mdhttp.Server
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		InstanceDir: defaultInstanceDir(),
	}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("mdview"),
		kong.Description("Serve a local Markdown file as rendered HTML with live refresh."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) > 0 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfig(m.InstanceDir)
	if err != nil {
		return err
	}
	applyFlags(&cfg, cli)

	host, port, err := ParseAddress(cli.Address)
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}

	logLevel := slog.LevelInfo
	if cfg.Quiet {
		logLevel = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	manager := m.assetManager(cfg)
	if cli.ClearCache {
		if err := manager.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(stdout, "Cache cleared.")
		return nil
	}

	reader, err := fs.NewDirectoryReader(cli.Path)
	if err != nil {
		return err
	}

	m.Server = &mdhttp.Server{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Reader:      reader,
		Renderer:    mdslog.NewLoggingRenderer(buildRenderer(cli, cfg), logger),
		Assets:      manager,
		Title:       cli.Title,
		Quiet:       cfg.Quiet,
		Autorefresh: cfg.Autorefresh,
		WideStyle:   cli.Wide,
		OpenBrowser: cli.Browser,
		Logger:      logger,
	}

	if cli.Export != "" {
		return m.export(ctx, cli.Export, stdout)
	}

	return m.Server.Run(ctx)
}

// applyFlags overrides file-loaded settings with CLI flags.
func applyFlags(cfg *mdview.Config, cli *CLI) {
	if cli.Quiet {
		cfg.Quiet = true
	}
	if cli.NoRefresh {
		cfg.Autorefresh = false
	}
	if cli.APIURL != "" {
		cfg.APIURL = cli.APIURL
	}
}

// buildRenderer picks the rendering backend: the GitHub API by default,
// the local engine with --offline.
func buildRenderer(cli *CLI, cfg mdview.Config) mdview.Renderer {
	if cli.Offline {
		var opts []goldmark.Option
		if cli.UserContent {
			opts = append(opts, goldmark.WithUserContent())
		}
		return goldmark.NewRenderer(opts...)
	}

	opts := []github.Option{github.WithAPIURL(cfg.APIURL)}
	if cli.UserContent {
		opts = append(opts, github.WithUserContent(cli.Context))
	}
	if cli.User != "" || cli.Pass != "" {
		opts = append(opts, github.WithCredentials(cli.User, cli.Pass))
	}
	return github.NewRenderer(opts...)
}

func (m *Main) assetManager(cfg mdview.Config) *assets.Manager {
	opts := []assets.Option{
		assets.WithCachePath(filepath.Join(m.InstanceDir, "cache")),
	}
	if len(cfg.StyleURLs) > 0 {
		opts = append(opts, assets.WithStyleURLs(cfg.StyleURLs))
	}
	return assets.NewManager(opts...)
}

// export renders the default document to a standalone file, or to stdout
// when target is "-".
func (m *Main) export(ctx context.Context, target string, stdout io.Writer) error {
	if target == "-" {
		return m.Server.Export(ctx, "", stdout)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := m.Server.Export(ctx, "", f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported to %s\n", target)
	return nil
}
