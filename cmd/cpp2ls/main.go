package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin"
	"github.com/davecgh/go-spew/spew"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/tender-barbarian/cpp2ls/internal/config"
	"github.com/tender-barbarian/cpp2ls/internal/document"
	"github.com/tender-barbarian/cpp2ls/internal/indexer"
	"github.com/tender-barbarian/cpp2ls/internal/lsp"
	"github.com/tender-barbarian/cpp2ls/internal/session"
	"github.com/tender-barbarian/cpp2ls/internal/tools"
)

const (
	name    = "cpp2ls"
	version = "0.1.0"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Default()

	app := kingpin.New(name, "Language server for cpp2 (cppfront) sources.")
	app.Version(version)
	app.Flag("root", "Project directory to index.").Envar("CPP2LS_ROOT").StringVar(&cfg.Root)
	app.Flag("cache-dir", "Index cache directory, relative to the root unless absolute.").Envar("CPP2LS_CACHE_DIR").Default(cfg.CacheDir).StringVar(&cfg.CacheDir)
	app.Flag("ext", "Indexed file extension; repeatable.").Envar("CPP2LS_EXT").StringsVar(&cfg.Extensions)
	app.Flag("exclude", "Doublestar pattern of files to skip; repeatable.").Envar("CPP2LS_EXCLUDE").StringsVar(&cfg.Exclude)
	app.Flag("gitignore", "Skip files matched by the root .gitignore.").Envar("CPP2LS_GITIGNORE").Default("true").BoolVar(&cfg.RespectGitignore)
	app.Flag("temp-dir", "Directory for staging document text.").Envar("CPP2LS_TEMP_DIR").StringVar(&cfg.TempDir)
	app.Flag("log-level", "Log level: trace, debug, info, warn, error.").Envar("CPP2LS_LOG_LEVEL").Default(cfg.LogLevel).StringVar(&cfg.LogLevel)

	serveCmd := app.Command("serve", "Serve the language server protocol on stdio.").Default()
	mcpCmd := app.Command("mcp", "Serve the query tools over MCP on stdio.")
	indexCmd := app.Command("index", "Refresh the on-disk project index and print its statistics.")
	dumpCmd := app.Command("dump", "Print the analysis of one file.")
	dumpFile := dumpCmd.Arg("file", "cpp2 source file.").Required().ExistingFile()

	cmd, err := app.Parse(args)
	if err != nil {
		return err
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), indexer.DefaultExtensions...)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.Level()).
		With().Timestamp().Str("app", name).Logger()

	switch cmd {
	case serveCmd.FullCommand():
		return lsp.New(cfg, version, logger).RunStdio()
	case mcpCmd.FullCommand():
		return serveMCP(cfg, logger)
	case indexCmd.FullCommand():
		return refreshIndex(cfg, logger)
	case dumpCmd.FullCommand():
		return dump(cfg, *dumpFile, logger)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func serveMCP(cfg config.Config, logger zerolog.Logger) error {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	idx, err := cfg.NewIndexer(logger)
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	logger.Info().Str("root", idx.Root()).Msg("indexing project")
	if _, err := idx.Refresh(); err != nil {
		return fmt.Errorf("indexing project: %w", err)
	}

	sess := session.New(idx,
		session.WithLogger(logger),
		session.WithDocumentOptions(cfg.DocumentOptions(logger)...),
	)
	s := server.NewMCPServer(name, version)
	tools.Register(s, sess, tools.NewNoteStore(filepath.Dir(idx.CachePath())))

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("serving MCP: %w", err)
	}
	return nil
}

func refreshIndex(cfg config.Config, logger zerolog.Logger) error {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	idx, err := cfg.NewIndexer(logger)
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	stats, err := idx.Refresh()
	if err != nil {
		return fmt.Errorf("indexing project: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func dump(cfg config.Config, file string, logger zerolog.Logger) error {
	path, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc := document.New(indexer.PathToURI(path), cfg.DocumentOptions(logger)...)
	doc.Update(string(data))

	dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	fmt.Printf("selection: %s\n", doc.Selection())
	dumper.Fdump(os.Stdout, doc.Latest())
	dumper.Fdump(os.Stdout, doc.Diagnostics())
	return nil
}
