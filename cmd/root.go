package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/depositform/internal/config"
	"github.com/zjrosen/depositform/internal/draft"
	"github.com/zjrosen/depositform/internal/flags"
	"github.com/zjrosen/depositform/internal/infrastructure/sqlite"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/nav"
	"github.com/zjrosen/depositform/internal/shell"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/submit"
	"github.com/zjrosen/depositform/internal/tracing"
	"github.com/zjrosen/depositform/internal/tree"
	"github.com/zjrosen/depositform/internal/watcher"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 response does not race the input loop and land in a text
	// input.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const localConfigPath = ".depositform/config.yaml"

var (
	version = "dev"
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "depositform",
	Short: "A terminal deposit form for research records",
	Long: `A multi-page deposit form for describing a research record. Fields shown on
each page depend on the selected resource type, and server validation errors
are mapped back to the pages that own them.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/depositform/config.yaml)")
	rootCmd.PersistentFlags().StringP("layout", "l", "",
		"layout file (default: embedded layout)")
	rootCmd.Flags().StringP("record", "r", "",
		"YAML or JSON file holding the record to edit")
	rootCmd.Flags().String("page", "",
		"page to open first")
	rootCmd.Flags().StringSlice("disable", nil,
		"feature flags to turn off for this run (autosave, draft-recovery, remote-vocabulary)")
	rootCmd.Flags().BoolP("debug", "d", false,
		"write debug logs (also DEPOSITFORM_DEBUG)")
}

func initConfig() {
	config.SetDefaults(v)
	_ = v.BindPFlag("layout.path", rootCmd.PersistentFlags().Lookup("layout"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .depositform/config.yaml (current directory)
		// 2. ~/.config/depositform/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
		} else {
			v.AddConfigPath(config.DefaultConfigDir())
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			log.Debug(log.CatConfig, "No config file, using defaults")
			return
		}
		log.ErrorErr(log.CatConfig, "Failed to read config", err, "file", v.ConfigFileUsed())
	}
}

// configPath returns the file config writes go to.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(config.DefaultConfigDir(), "config.yaml")
}

func runApp(cmd *cobra.Command, _ []string) error {
	debugFlag, _ := cmd.Flags().GetBool("debug")
	if os.Getenv("DEPOSITFORM_DEBUG") != "" || debugFlag {
		logPath := os.Getenv("DEPOSITFORM_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.InitWithTeaLog(logPath, "depositform")
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		defer cleanup()
		if err := log.InitFromEnv(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	recordPath, _ := cmd.Flags().GetString("record")
	values, serverErrs, err := loadRecord(recordPath)
	if err != nil {
		return err
	}

	l, err := loadLayout(cfg)
	if err != nil {
		return err
	}
	validator, err := newValidator(cfg, l.Layout)
	if err != nil {
		return err
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	st := store.New(values, serverErrs, validator)
	defer st.Close()

	featureFlags := flags.New(cfg.Flags)
	if off, _ := cmd.Flags().GetStringSlice("disable"); len(off) > 0 {
		overrides := make(map[string]bool, len(off))
		for _, name := range off {
			overrides[name] = false
		}
		featureFlags = featureFlags.With(overrides)
	}
	svc := shell.Services{
		Layout:   l.Layout,
		Registry: l.Registry,
		Store:    st,
		Flags:    featureFlags,
		Config:   cfg,
		Tracer:   provider.Tracer(),
	}

	recordID := tree.String(values, "id")
	page, _ := cmd.Flags().GetString("page")
	svc.History = nav.NewURLHistory(startURL(recordID, layout.PageID(page)))

	if featureFlags.Enabled(flags.FlagDraftRecovery) || featureFlags.Enabled(flags.FlagAutosave) {
		drafts, closeDrafts := openDraftStore(cfg.Draft.DBPath)
		defer closeDrafts()
		svc.Drafts = draft.NewManager(drafts, draftKey(cfg.Draft.UserID, recordID), draft.WithTracer(provider.Tracer()))
	}

	if cfg.Submit.BaseURL != "" {
		client, err := submit.NewClient(cfg.Submit.BaseURL,
			submit.WithToken(cfg.Submit.Token),
			submit.WithHTTPClient(&http.Client{Timeout: cfg.Submit.Timeout}),
			submit.WithTracer(provider.Tracer()),
			submit.WithVocabularyTTL(cfg.Submit.VocabularyTTL),
		)
		if err != nil {
			return fmt.Errorf("creating repository client: %w", err)
		}
		svc.Submitter = client
		svc.Vocabulary = client
	}

	if cfg.Layout.Watch && cfg.Layout.Path != "" {
		w, err := watcher.New(watcher.DefaultConfig(cfg.Layout.Path))
		if err != nil {
			return err
		}
		changes, err := w.Start()
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		svc.LayoutChanges = changes
		svc.ReloadLayout = func() (*layout.Layout, error) {
			return layout.Load(cfg.Layout.Path)
		}
	}

	zone.NewGlobal()
	model, err := shell.New(svc)
	if err != nil {
		return fmt.Errorf("creating form: %w", err)
	}

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	final, err := p.Run()
	if fm, ok := final.(shell.Model); ok {
		fm.Close()
	}
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// openDraftStore opens the sqlite draft store, falling back to an in-memory
// store when the database cannot be opened.
func openDraftStore(path string) (draft.Store, func()) {
	db, err := sqlite.NewDB(path)
	if err != nil {
		log.ErrorErr(log.CatDraft, "Draft database unavailable, keeping drafts in memory", err, "path", path)
		return draft.NewCacheStore(), func() {}
	}
	return db.DraftRepository(), func() { _ = db.Close() }
}

func draftKey(userID, recordID string) draft.Key {
	if recordID == "" {
		recordID = "new"
	}
	return draft.Key{UserID: userID, RecordID: recordID}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string shown by --version.
func SetVersion(ver string) {
	version = ver
	rootCmd.Version = ver
}
