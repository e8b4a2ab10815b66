package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is the application version, set via ldflags.
var version = "dev"

var (
	cfgFile   string
	configErr error // Surfaced from RunE so a broken config file fails the run
)

// Options is the resolved configuration for one run: defaults < config file < GRABIT_* env < flags.
type Options struct {
	OutputPath   string
	Clipboard    bool
	PDFPath      string
	ManifestPath string
	GitBackend   string
	GitIgnore    bool
	Interactive  bool
	Tokenizer    TokenizerOptions
	LogLevel     string
}

var rootCmd = &cobra.Command{
	Use:   "grabit <directory>",
	Short: "Grabit collects a directory's files and git history into one context for AI assistants.",
	Long: `Grabit recursively scans a directory (or clones a git repository), reads every
file not excluded by the project's .grabit file, attaches each file's git history,
and assembles a single Markdown document you can paste into an AI assistant.`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		opts := loadOptions()

		logger, err := newLogger(opts.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		r := &runner{
			fs:        afero.NewOsFs(),
			stdout:    cmd.OutOrStdout(),
			clipboard: systemClipboard{},
			logger:    logger,
		}
		return r.run(cmd.Context(), args[0], opts)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/grabit/config.toml)")

	flags := rootCmd.Flags()
	flags.StringP("output", "o", "", "File to save extracted content")
	flags.BoolP("clipboard", "c", false, "Copy output to clipboard")
	flags.String("pdf", "", "Also render the context as a PDF at this path")
	flags.String("manifest", "", "Write per-file metadata as YAML to this path")
	flags.String("git-backend", backendCLI, "Git history source: cli, go-git or none")
	flags.Bool("gitignore", false, "Also skip files matched by the root .gitignore")
	flags.BoolP("interactive", "i", false, "Pick which files to include with a fuzzy finder")
	flags.String("tokenizer", "", "Exact token counter: tiktoken or huggingface (default: chars/4 estimate only)")
	flags.String("model", "", "Model name for the tokenizer (e.g., gpt-4o, gpt2)")
	flags.String("tokenizer-file", "", "Path to a local tokenizer.json for huggingface")
	flags.BoolP("verbose", "v", false, "Show debug diagnostics")
	flags.BoolP("quiet", "q", false, "Only show warnings and errors")

	for key, flag := range map[string]string{
		"output":         "output",
		"clipboard":      "clipboard",
		"pdf":            "pdf",
		"manifest":       "manifest",
		"git_backend":    "git-backend",
		"gitignore":      "gitignore",
		"interactive":    "interactive",
		"tokenizer":      "tokenizer",
		"model":          "model",
		"tokenizer_file": "tokenizer-file",
		"verbose":        "verbose",
		"quiet":          "quiet",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	viper.SetDefault("git_backend", backendCLI)
	viper.SetDefault("log_level", "info")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "grabit"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("GRABIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("error reading config file: %w", err)
		}
		return
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
}

// loadOptions resolves the run configuration from viper.
func loadOptions() Options {
	logLevel := viper.GetString("log_level")
	switch {
	case viper.GetBool("verbose"):
		logLevel = "debug"
	case viper.GetBool("quiet"):
		logLevel = "warn"
	}

	return Options{
		OutputPath:   viper.GetString("output"),
		Clipboard:    viper.GetBool("clipboard"),
		PDFPath:      viper.GetString("pdf"),
		ManifestPath: viper.GetString("manifest"),
		GitBackend:   viper.GetString("git_backend"),
		GitIgnore:    viper.GetBool("gitignore"),
		Interactive:  viper.GetBool("interactive"),
		Tokenizer: TokenizerOptions{
			Type:  viper.GetString("tokenizer"),
			Model: viper.GetString("model"),
			File:  viper.GetString("tokenizer_file"),
		},
		LogLevel: logLevel,
	}
}

// runner carries the collaborators of one invocation so tests can swap them.
type runner struct {
	fs        afero.Fs
	stdout    io.Writer
	clipboard Clipboard
	logger    *zap.Logger

	// selectFn narrows records in interactive mode; nil means selectRecords.
	selectFn func([]FileRecord) ([]FileRecord, error)
}

// run executes load rules -> walk -> assemble -> dispatch for a single input.
func (r *runner) run(ctx context.Context, input string, opts Options) error {
	root := input
	cloned := isGitURL(input)
	if cloned {
		tempDir, err := cloneGitRepo(input, r.logger)
		if err != nil {
			return err
		}
		defer func() {
			r.logger.Debug("cleaning up temporary directory", zap.String("dir", tempDir))
			_ = os.RemoveAll(tempDir)
		}()
		root = tempDir
	}

	rules, err := loadRules(r.fs, root, r.logger)
	if err != nil {
		return err
	}

	history, err := newHistoryFetcher(opts.GitBackend, r.logger)
	if err != nil {
		return err
	}

	walker := newWalker(r.fs, rules, history, r.logger)
	walker.relativePaths = cloned
	if opts.GitIgnore {
		if err := walker.useGitIgnore(root); err != nil {
			return err
		}
	}

	records, err := walker.Walk(ctx, root)
	if err != nil {
		return err
	}

	if opts.Interactive {
		selectFn := r.selectFn
		if selectFn == nil {
			selectFn = selectRecords
		}
		records, err = selectFn(records)
		if errors.Is(err, errSelectionAborted) {
			fmt.Fprintln(r.stdout, "Interactive selection aborted.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	doc := assembleContext(records, rules.Preamble)

	tk, err := newTokenizer(opts.Tokenizer, r.logger)
	if err != nil {
		r.logger.Warn("exact token counting disabled", zap.Error(err))
	} else if tk != nil {
		r.logger.Info("counting tokens", zap.String("tokenizer", tk.Name()))
		if err := countExactTokens(&doc, tk); err != nil {
			r.logger.Warn("exact token counting failed", zap.Error(err))
		}
	}

	var langs *LoadedLanguageData
	if opts.PDFPath != "" {
		langs, err = loadLanguageData(languageSearchPaths())
		if err != nil {
			r.logger.Warn("could not load language definitions", zap.Error(err))
		}
	}

	dispatcher := newDispatcher(r.fs, r.stdout, r.clipboard, langs, r.logger)
	return dispatcher.Dispatch(doc, Destinations{
		OutputPath:   opts.OutputPath,
		Clipboard:    opts.Clipboard,
		PDFPath:      opts.PDFPath,
		ManifestPath: opts.ManifestPath,
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
