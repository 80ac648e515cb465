package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gubarz/shortlinks/internal/config"
	"github.com/gubarz/shortlinks/internal/editor"
	"github.com/gubarz/shortlinks/internal/errors"
	"github.com/gubarz/shortlinks/internal/executor"
	"github.com/gubarz/shortlinks/internal/logging"
	"github.com/gubarz/shortlinks/internal/redirect"
	"github.com/gubarz/shortlinks/internal/registry"
	"github.com/gubarz/shortlinks/internal/source"
	"github.com/gubarz/shortlinks/internal/ui"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shortlinks",
		Short: "Personal URL shortener",
		Long: `Short links backed by a plain text file.

Each line of the links file maps a path to a URL:

  # Talks
  /talk   https://example.com/talk

Run without arguments to browse and create links interactively,
or use "serve" to answer redirects over HTTP.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
		RunE:              runTUI,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default: $XDG_CONFIG_HOME/shortlinks/shortlinks.yaml)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().String("file", "", "Local links file")
	rootCmd.PersistentFlags().String("url", "", "Remote links URL; pass an empty value to read the local file")
	rootCmd.Flags().StringP("query", "q", "", "Initial search query")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve redirects for the links file",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", "", "Redirect listen address (default from config)")
	serveCmd.Flags().String("metrics-addr", "", "Prometheus metrics listen address")

	fmtCmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Align the URL column of a links file",
		Long: `Rewrites a links file so that, within each group, every URL starts one
column past the longest path. Use "-" to read stdin and write stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFmt,
	}
	fmtCmd.Flags().Bool("check", false, "Exit non-zero if the file is not aligned, without writing")

	addCmd := &cobra.Command{
		Use:   "add <path> <url>",
		Short: "Append a link to the local links file",
		Args:  cobra.ExactArgs(2),
		RunE:  runAdd,
	}
	addCmd.Flags().Bool("no-git", false, "Skip git add and commit")
	addCmd.Flags().Bool("no-copy", false, "Do not copy the short URL to the clipboard")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print all links grouped by title",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	listCmd.Flags().Bool("json", false, "Print groups as JSON")

	lookupCmd := &cobra.Command{
		Use:   "lookup <path>",
		Short: "Print the URL a path redirects to",
		Args:  cobra.ExactArgs(1),
		RunE:  runLookup,
	}

	rootCmd.AddCommand(serveCmd, fmtCmd, addCmd, listCmd, lookupCmd)
	return rootCmd
}

// initConfig loads configuration, applies flag overrides and sets up logging.
// The TUI owns the terminal, so it logs to the file only.
func initConfig(cmd *cobra.Command, args []string) error {
	flags := cmd.Root().PersistentFlags()

	configFile, _ := flags.GetString("config")
	if err := config.Init(configFile); err != nil {
		return errors.Wrap(err, errors.ErrConfig, "error loading config")
	}
	if flags.Changed("file") {
		file, _ := flags.GetString("file")
		config.SetLinksFile(file)
	}
	if flags.Changed("url") {
		url, _ := flags.GetString("url")
		config.SetLinksURL(url)
	}

	verbosity, _ := flags.GetCount("verbose")
	if cmd == cmd.Root() {
		logging.SetupFileOnly(verbosity)
	} else {
		logging.SetupLogger(verbosity)
	}

	logger := logging.GetLogger("main")
	logger.Debug().
		Str("config", config.ConfigFileUsed()).
		Str("linksURL", config.GetLinksURL()).
		Str("linksFile", config.GetLinksFile()).
		Msg("Configuration loaded")
	return nil
}

func newLoader() source.Loader {
	return source.New(config.GetLinksURL(), config.GetLinksFile(), config.GetFetchTimeout())
}

func newEditor(git, clip bool) *editor.Editor {
	store := source.NewFileStore(afero.NewOsFs(), config.GetLinksFile())
	opts := editor.EffectOptions{
		Runner:      executor.NewExecutor(),
		Dir:         config.GetLinksDir(),
		File:        config.GetLinksFile(),
		Git:         git,
		TerminalCmd: config.GetTerminalCmd(),
	}
	if clip {
		opts.Clipboard = executor.SystemClipboard()
	}
	ed := editor.New(store, config.ShortURL, editor.DefaultEffects(opts)...)
	logger := logging.GetLogger("main")
	logger.Debug().
		Str("file", config.GetLinksFile()).
		Strs("effects", ed.Effects()).
		Msg("Editor ready")
	return ed
}

func runTUI(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")

	deps := ui.Deps{
		Loader:    newLoader(),
		Clipboard: executor.SystemClipboard(),
		ShortURL:  config.ShortURL,
	}
	if config.GetLinksFile() != "" {
		deps.Editor = newEditor(config.GetGit(), true)
	}

	copied, err := ui.RunTUI(deps, query)
	if err != nil {
		return err
	}
	if copied != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Copied %s\n", copied)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	cfg := redirect.Config{
		Listen:      config.GetListen(),
		MetricsAddr: config.GetMetricsAddr(),
		HomeURL:     config.GetHomeURL(),
		Registry:    reg,
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}

	loader := newLoader()
	logger := logging.GetLogger("main")
	logger.Info().
		Str("source", source.Describe(loader)).
		Dur("cacheTTL", config.GetCacheTTL()).
		Msg("Starting redirect server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := redirect.NewServer(redirect.NewStore(loader, config.GetCacheTTL(), reg), cfg)
	return srv.ListenAndServe(ctx)
}

func runFmt(cmd *cobra.Command, args []string) error {
	check, _ := cmd.Flags().GetBool("check")

	path := config.GetLinksFile()
	if len(args) > 0 {
		path = args[0]
	}

	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, errors.ErrFileRead, "failed to read stdin")
		}
		if err := registry.ValidateText(data); err != nil {
			return errors.Wrap(err, errors.ErrFormat, "invalid links text")
		}
		text := string(data)
		if check {
			return checkNormalized("stdin", text)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), registry.Normalize(text))
		return err
	}

	store := source.NewFileStore(afero.NewOsFs(), path)
	text, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}
	if check {
		return checkNormalized(path, text)
	}

	normalized := registry.Normalize(text)
	if normalized == text {
		logger := logging.GetLogger("main")
		logger.Info().Str("file", path).Msg("Already aligned")
		return nil
	}
	if err := store.Save(cmd.Context(), normalized); err != nil {
		return err
	}
	logger := logging.GetLogger("main")
	logger.Info().Str("file", path).Msg("Aligned")
	return nil
}

func checkNormalized(name, text string) error {
	if !registry.IsNormalized(text) {
		return errors.Newf(errors.ErrFormat, "%s is not aligned; run shortlinks fmt", name)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	noGit, _ := cmd.Flags().GetBool("no-git")
	noCopy, _ := cmd.Flags().GetBool("no-copy")

	ed := newEditor(config.GetGit() && !noGit, !noCopy)
	res, err := ed.Append(cmd.Context(), editor.NewLink{Path: args[0], URL: args[1]})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.ShortURL)
	for _, effectErr := range res.EffectErrors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", effectErr)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	reg, err := loadRegistry(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reg)
	}
	if formatted := registry.Format(reg); formatted != "" {
		fmt.Fprintln(out, formatted)
	}
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	text, err := newLoader().Load(cmd.Context())
	if err != nil {
		return err
	}
	url, ok := registry.NewLookup(text).Resolve(args[0])
	if !ok {
		return errors.Newf(errors.ErrNotFound, "no link for %s", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}

func loadRegistry(ctx context.Context) (registry.Registry, error) {
	text, err := newLoader().Load(ctx)
	if err != nil {
		return nil, err
	}
	return registry.Parse(text), nil
}

func main() {
	rootCmd := newRootCmd()
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
