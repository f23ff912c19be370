// lingo — CLI for the Lingo.dev localization engine: translate text, JSON
// translation files, and gettext PO catalogs with batched, concurrent,
// retry-aware dispatch.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lingodotdev/lingo-go/config"
	"github.com/lingodotdev/lingo-go/content"
	"github.com/lingodotdev/lingo-go/engine"
	"github.com/lingodotdev/lingo-go/logging"
	"github.com/lingodotdev/lingo-go/settings"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir     string
	apiKeyFlag  string
	verboseFlag bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lingo",
		Short: "Localize text, JSON files, and PO catalogs via the Lingo.dev engine",
		Long: `lingo — CLI for the Lingo.dev localization engine.

Content is split into word-count-bounded chunks, dispatched under a
concurrency cap with exponential-backoff retries, and reassembled in the
original key order.

Commands:
  translate   Translate inline text or the project's declared targets
  detect      Detect the language of a text
  whoami      Show the account behind the configured API key
  auth        Manage API key credentials
  status      Show project configuration and credential state

API keys are resolved from --api-key, then LINGO_API_KEY, then the
credential store ('lingo auth login').`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "Engine API key (overrides env and credential store)")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newTranslateCmd(),
		newDetectCmd(),
		newWhoamiCmd(),
		newAuthCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildEngine resolves credentials and environment settings into an Engine.
func buildEngine(batchSize, wordCap, maxConcurrent int) (*engine.Engine, error) {
	apiKey, err := settings.ResolveAPIKey(apiKeyFlag)
	if err != nil {
		return nil, err
	}

	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	level := env.LogLevel
	if verboseFlag {
		level = "debug"
	}
	logger, err := logging.New(env.Environment, level)
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Config{
		APIKey:             apiKey,
		APIURL:             env.APIURL,
		Timeout:            env.Timeout,
		BatchSize:          batchSize,
		IdealBatchItemSize: wordCap,
		MaxConcurrent:      maxConcurrent,
	}, logger)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lingo %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	source        string
	targets       []string
	fast          bool
	concurrent    bool
	batchSize     int
	wordCap       int
	maxConcurrent int
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate inline text or the project's declared targets",
		Long: `Translate inline text, or — when invoked without arguments inside a
project with a .lingo.yaml — every declared target file.

Concurrent mode trades deterministic progress for throughput: per-chunk
progress percentages follow completion order, not input order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			if len(args) == 1 {
				return runTranslateText(ctx, args[0], a)
			}
			return runTranslateProject(ctx, a)
		},
	}

	cmd.Flags().StringVarP(&a.source, "source", "s", "", "Source locale (default: auto-detect)")
	cmd.Flags().StringSliceVarP(&a.targets, "target", "t", nil, "Target locale(s)")
	cmd.Flags().BoolVar(&a.fast, "fast", false, "Fast mode (lower quality, lower latency)")
	cmd.Flags().BoolVar(&a.concurrent, "concurrent", false, "Dispatch chunks concurrently")
	cmd.Flags().IntVar(&a.batchSize, "batch-size", 0, "Max items per chunk (default 25)")
	cmd.Flags().IntVar(&a.wordCap, "word-cap", 0, "Approximate words per chunk (default 250)")
	cmd.Flags().IntVar(&a.maxConcurrent, "max-concurrent", 0, "Max in-flight chunks in concurrent mode (default 5)")

	return cmd
}

func runTranslateText(ctx context.Context, text string, a translateArgs) error {
	if len(a.targets) == 0 {
		return fmt.Errorf("at least one --target locale is required")
	}

	eng, err := buildEngine(a.batchSize, a.wordCap, a.maxConcurrent)
	if err != nil {
		return err
	}

	if len(a.targets) == 1 {
		localized, err := eng.LocalizeText(ctx, text, engine.Params{
			SourceLocale: a.source,
			TargetLocale: a.targets[0],
			Fast:         a.fast,
		}, engine.LocalizeOptions{Concurrent: a.concurrent})
		if err != nil {
			return err
		}
		fmt.Println(localized)
		return nil
	}

	results, err := eng.BatchLocalizeText(ctx, text, a.source, a.targets, a.fast)
	if err != nil {
		return err
	}
	for i, target := range a.targets {
		fmt.Printf("%s\t%s\n", target, results[i])
	}
	return nil
}

func runTranslateProject(ctx context.Context, a translateArgs) error {
	if !config.Exists(rootDir) {
		return fmt.Errorf("no text given and no %s found in %s", config.FileName, rootDir)
	}
	project, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	eng, err := buildEngine(a.batchSize, a.wordCap, a.maxConcurrent)
	if err != nil {
		return err
	}

	var failed []string
	for _, target := range project.Targets {
		locales := target.EffectiveLocales(project)
		if len(a.targets) > 0 {
			locales = a.targets
		}

		for _, locale := range locales {
			logInfo("Translating %s → %s...", target.Name, locale)
			if err := translateTarget(ctx, eng, project, target, locale, a); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logError("%s → %s: %v", target.Name, locale, err)
				failed = append(failed, fmt.Sprintf("%s:%s", target.Name, locale))
				continue
			}
			logSuccess("%s → %s", target.Name, locale)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d target(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func translateTarget(ctx context.Context, eng *engine.Engine, project *config.LingoFile, target config.Target, locale string, a translateArgs) error {
	params := engine.Params{
		SourceLocale: project.SourceLocale,
		TargetLocale: locale,
		Fast:         a.fast || target.Fast,
	}
	opts := engine.LocalizeOptions{
		Concurrent: a.concurrent,
		Progress: func(pct int, _, _ *engine.Payload) {
			logInfo("  %s → %s: %d%%", target.Name, locale, pct)
		},
	}

	srcPath := joinRoot(target.Path)

	switch target.Type {
	case config.TargetTypeJSON:
		payload, err := content.LoadJSON(srcPath)
		if err != nil {
			return err
		}
		localized, err := eng.LocalizeObject(ctx, payload, params, opts)
		if err != nil {
			return err
		}
		return content.WriteJSON(joinRoot(target.OutPath(locale)), localized)

	case config.TargetTypePO:
		catalog, err := content.LoadPO(srcPath)
		if err != nil {
			return err
		}
		payload := content.UntranslatedPayload(catalog)
		if payload.Len() == 0 {
			logInfo("  %s: nothing to translate", target.Name)
			return nil
		}
		localized, err := eng.LocalizeObject(ctx, payload, params, opts)
		if err != nil {
			return err
		}
		content.ApplyTranslations(catalog, localized)
		return content.WritePO(joinRoot(target.OutPath(locale)), catalog)

	default:
		return fmt.Errorf("unknown target type %q", target.Type)
	}
}

func joinRoot(path string) string {
	if rootDir == "" || rootDir == "." {
		return path
	}
	return filepath.Join(rootDir, path)
}

// ---------------------------------------------------------------------------
// detect
// ---------------------------------------------------------------------------

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <text>",
		Short: "Detect the language of a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			eng, err := buildEngine(0, 0, 0)
			if err != nil {
				return err
			}
			locale, err := eng.RecognizeLocale(ctx, args[0])
			if err != nil {
				return err
			}
			if locale == "" {
				return fmt.Errorf("could not determine the language")
			}
			fmt.Println(locale)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// whoami
// ---------------------------------------------------------------------------

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the configured API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			eng, err := buildEngine(0, 0, 0)
			if err != nil {
				return err
			}
			account, err := eng.Whoami(ctx)
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("not authenticated: the API key was not recognized")
			}
			fmt.Printf("%s (%s)\n", account.Email, account.ID)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API key credentials",
	}
	cmd.AddCommand(newAuthLoginCmd(), newAuthLogoutCmd(), newAuthListCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var profile string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an engine API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(apiKeyFlag)
			if key == "" {
				fmt.Fprint(os.Stderr, "Enter API key: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading API key: %w", err)
				}
				key = strings.TrimSpace(line)
			}
			if key == "" {
				return fmt.Errorf("API key cannot be empty")
			}

			if err := settings.Set(profile, &settings.Credential{Key: key, BaseURL: baseURL}); err != nil {
				return err
			}
			logSuccess("Credentials stored for profile %q", profile)
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", settings.DefaultProfile, "Credential profile name")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Engine endpoint override for this profile")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Delete(profile); err != nil {
				return err
			}
			logSuccess("Removed credentials for profile %q", profile)
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", settings.DefaultProfile, "Credential profile name")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credential profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settings.Load()
			if err != nil {
				return err
			}
			if len(store) == 0 {
				logInfo("No stored credentials. Run 'lingo auth login'.")
				return nil
			}
			for profile, cred := range store {
				endpoint := cred.BaseURL
				if endpoint == "" {
					endpoint = "(default endpoint)"
				}
				fmt.Printf("%s\t%s\t%s\n", profile, maskKey(cred.Key), endpoint)
			}
			return nil
		},
	}
}

// maskKey hides all but the first and last few characters of an API key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project configuration and credential state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := settings.ResolveAPIKey(apiKeyFlag); err != nil {
				logWarning("%v", err)
			} else {
				logSuccess("API key configured")
			}

			if !config.Exists(rootDir) {
				logInfo("No %s in %s — inline 'lingo translate <text>' only", config.FileName, rootDir)
				return nil
			}

			project, err := config.Load(rootDir)
			if err != nil {
				return err
			}

			fmt.Printf("Source locale:  %s\n", project.SourceLocale)
			fmt.Printf("Target locales: %s\n", strings.Join(project.TargetLocales, ", "))
			fmt.Printf("Targets:\n")
			for _, target := range project.Targets {
				locales := target.EffectiveLocales(project)
				fmt.Printf("  %-20s %-5s %s → %s\n", target.Name, target.Type, target.Path, strings.Join(locales, ","))
			}
			return nil
		},
	}
}
