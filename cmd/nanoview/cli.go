package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/arthur-debert/nanoview/catalog"
	"github.com/arthur-debert/nanoview/nanoview/collection"
	"github.com/arthur-debert/nanoview/nanoview/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI is the viper-configured command tree. Each instance runs one
// invocation.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	out       io.Writer
	errOut    io.Writer

	logger    *slog.Logger
	logCloser io.Closer
	configErr error
}

// NewCLI builds the command tree writing results to out and warnings to errOut
func NewCLI(out, errOut io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		out:       out,
		errOut:    errOut,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the command line args
func (cli *CLI) Execute(args []string) error {
	cli.rootCmd.SetArgs(args)
	cli.rootCmd.SetOut(cli.out)
	cli.rootCmd.SetErr(cli.errOut)
	err := cli.rootCmd.Execute()
	if cli.logCloser != nil {
		_ = cli.logCloser.Close()
	}
	return err
}

// setupViperConfig wires environment variables and config file discovery
func (cli *CLI) setupViperConfig() {
	if configFile := os.Getenv("NANOVIEW_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("nanoview")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.nanoview")
	}

	cli.viperInst.SetEnvPrefix("NANOVIEW")
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cli.viperInst.AutomaticEnv()

	if err := cli.viperInst.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cli.configErr = err
		}
	}
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "nanoview",
		Short: "Search, filter, sort and summarize application records",
		Long: `nanoview is a dashboard over small record collections. Each built-in
application (see 'nanoview apps') declares a schema, the aggregates it shows
and the records a first run starts from.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOVIEW_*)
3. Configuration file
4. Defaults

Configuration file discovery:
  NANOVIEW_CONFIG=/path/to/config.yaml   # Custom config file path
  ./nanoview.yaml                        # Current directory
  ~/.nanoview/nanoview.yaml              # User directory

Examples:
  nanoview list --app team --filter department=engineering --sort salary:desc
  nanoview list --app inventory --query cable --filter price=10..50
  nanoview stats --app invoices --within issued=-30d..0d
  nanoview add --app team --set name="Ida Wells" --set role=mid
  nanoview export --app team team.csv
  nanoview import --app team --conflict overwrite team.csv
  nanoview migrate validate --app team`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = cli.viperInst.BindPFlags(cmd.Flags())
			if cli.configErr != nil {
				return NewConfigError("read configuration", cli.configErr.Error(), CommonSuggestions.CheckConfig)
			}

			logger, closer, err := initLogging(cli.viperInst.GetString("log-level"), cli.viperInst.GetBool("verbose"), cli.errOut)
			if err != nil {
				return NewConfigError("initialize logging", err.Error(), CommonSuggestions.CheckPerms)
			}
			cli.logger, cli.logCloser = logger, closer
			cli.logger.Debug("command started", "command", cmd.Name(), "args", args)
			return nil
		},
	}

	cli.addGlobalFlags()
}

func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.StringP("app", "a", "team", "Built-in application name")
	flags.String("app-file", "", "Path to a user-defined application (overrides --app)")
	flags.StringP("store", "s", "", "Store location (default nanoview.json, or nanoview.db for sqlite)")
	flags.String("backend", storage.BackendJSON, fmt.Sprintf("Store backend (%s)", strings.Join(storage.Backends(), "|")))
	flags.StringP("key", "k", "", "Collection key inside the store (default: the app name)")
	flags.StringP("format", "f", "table", "Output format (table|json|yaml)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.BoolP("verbose", "v", false, "Mirror logs to stderr")

	for _, name := range []string{"app", "app-file", "store", "backend", "key", "format", "log-level", "verbose"} {
		_ = cli.viperInst.BindPFlag(name, flags.Lookup(name))
	}
}

func (cli *CLI) addCommands() {
	cli.addAppsCommand()
	cli.addListCommand()
	cli.addStatsCommand()
	cli.addAddCommand()
	cli.addUpdateCommand()
	cli.addDeleteCommand()
	cli.addExportCommand()
	cli.addImportCommand()
	cli.addMigrateCommand()
}

// loadApp resolves the configured application definition
func (cli *CLI) loadApp(operation string) (*catalog.App, error) {
	if path := cli.viperInst.GetString("app-file"); path != "" {
		app, err := catalog.LoadFile(path)
		if err != nil {
			return nil, NewConfigError(operation, err.Error(), CommonSuggestions.CheckAppFile)
		}
		return app, nil
	}

	name := cli.viperInst.GetString("app")
	app, err := catalog.Get(name)
	if err != nil {
		return nil, NewAppError(operation, name, catalog.Names())
	}
	return app, nil
}

// session is one opened application collection
type session struct {
	app        *catalog.App
	store      storage.Store
	collection *collection.Collection
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads the app and its collection from the configured store
func (cli *CLI) openSession(operation string) (*session, error) {
	app, err := cli.loadApp(operation)
	if err != nil {
		return nil, err
	}

	store, key, err := cli.openStore(operation, app)
	if err != nil {
		return nil, err
	}

	coll, err := collection.Open(store, key, app.Schema,
		collection.WithSeeds(app.SeedRecords()...),
		collection.WithAggregates(app.Aggregates...),
		collection.WithLogger(cli.logger),
		collection.WithNoticeHandler(func(n collection.Notice) {
			fmt.Fprintf(cli.errOut, "Warning: %s\n", n)
		}),
	)
	if err != nil {
		_ = store.Close()
		return nil, NewStoreError(operation, err, CommonSuggestions.CheckStore)
	}

	cli.logger.Info("opened collection", "app", app.Name, "key", key, "records", coll.Len())
	return &session{app: app, store: store, collection: coll}, nil
}

// openStore opens the configured store and resolves the app's collection key
func (cli *CLI) openStore(operation string, app *catalog.App) (storage.Store, string, error) {
	backend := cli.viperInst.GetString("backend")
	location := storeLocation(backend, cli.viperInst.GetString("store"))
	store, err := storage.Open(backend, location)
	if err != nil {
		return nil, "", NewStoreError(operation, err, CommonSuggestions.CheckStore)
	}

	key := cli.viperInst.GetString("key")
	if key == "" {
		key = app.Name
	}
	cli.logger.Debug("opened store", "backend", backend, "location", location, "key", key)
	return store, key, nil
}

// storeLocation fills in the default file name for file-backed stores
func storeLocation(backend, location string) string {
	if location != "" {
		return location
	}
	switch backend {
	case storage.BackendSQLite:
		return "nanoview.db"
	case storage.BackendMemory:
		return ""
	}
	return "nanoview.json"
}

// newPrinter returns a printer for the configured output format
func (cli *CLI) newPrinter(operation string) (*printer, error) {
	format := cli.viperInst.GetString("format")
	if !isOutputFormat(format) {
		return nil, NewValidationError(operation, "output format", format,
			fmt.Sprintf("Use one of: %s", strings.Join(outputFormats, ", ")))
	}
	return &printer{w: cli.out, format: format}, nil
}
