// dbwizard proposes the connection string and connection string name the
// model wizard's database configuration page would offer, and can serve the
// same operations to an IDE host as a plugin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/schemabounce/kolumn/dbwizard"
	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
	"github.com/schemabounce/kolumn/dbwizard/providers"
	"github.com/schemabounce/kolumn/dbwizard/rpc"
	"github.com/schemabounce/kolumn/dbwizard/types"
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "connstr":
		err = runConnStr(args[1:], stdout, stderr)
	case "name":
		err = runName(args[1:], stdout, stderr)
	case "providers":
		err = runProviders(stdout)
	case "serve":
		err = runServe(args[1:], stderr)
	case "version":
		info := dbwizard.GetInfo()
		fmt.Fprintf(stdout, "dbwizard %s (api %s, protocol %d)\n", info.Version, info.APIVersion, info.ProtocolVersion)
	case "help", "-h", "-help", "--help":
		printHelp(stdout)
	default:
		printError(stderr, fmt.Errorf("unknown command %q", args[0]))
		printHelp(stderr)
		return 2
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		printError(stderr, err)
		return 2
	default:
		printError(stderr, err)
		return 1
	}
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "Error: ")
	fmt.Fprintln(w, err)
}

func runConnStr(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("connstr", flag.ContinueOnError)
	fs.SetOutput(stderr)

	provider := fs.String("provider", string(providers.SQLClient), "Provider invariant name or identity GUID")
	mode := fs.String("mode", types.DatabaseFirstFromEdmx.String(), "Generation mode: database-first or code-first")
	model := fs.String("model", "", "Path of the .edmx model file (database-first)")
	qualified := fs.String("qualified-name", "", "Resource-qualified model name for nested models")
	defaults := fs.Bool("design-time-defaults", false, "Append MultipleActiveResultSets and App keywords for SqlClient")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: connstr expects exactly one provider connection string argument", errUsage)
	}

	req := &rpc.BuildConnectionStringRequest{
		ProviderID:               providerID(*provider).String(),
		ProviderConnectionString: fs.Arg(0),
		Mode:                     *mode,
		DesignTimeDefaults:       *defaults,
	}
	if *model != "" || *qualified != "" {
		req.Model = &types.ModelLocation{
			ModelPath:     *model,
			QualifiedName: *qualified,
		}
	}

	service := rpc.NewLocalService(providers.NewBuiltinRegistry())
	value, err := service.BuildConnectionString(context.Background(), req)
	if err != nil {
		if rpc.IsProviderNotFound(err) {
			return fmt.Errorf("provider %q is not registered (see 'dbwizard providers'): %w", *provider, err)
		}
		return err
	}
	fmt.Fprintln(stdout, value)
	return nil
}

// parseFlags reports bad flags as usage errors. flag has already printed
// the details and defaults to stderr.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", errUsage, err)
}

// providerID accepts either a GUID or an invariant name.
func providerID(value string) types.ProviderIdentity {
	if id, err := uuid.Parse(value); err == nil {
		return id
	}
	return providers.IdentityFor(types.ProviderInvariantName(value))
}

func runName(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("name", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path of the application configuration file")
	project := fs.String("project", "", "Project directory holding Web.config or App.config")
	source := fs.String("source", "", "Configuration source: memory, local, postgres or s3")
	settings := settingsFlag{}
	fs.Var(settings, "set", "Source setting as key=value (repeatable)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: name expects exactly one candidate name argument", errUsage)
	}

	req := &rpc.ResolveUniqueNameRequest{Candidate: fs.Arg(0)}
	switch {
	case *configFile != "":
		req.Source = "local"
		req.Settings = map[string]interface{}{
			"project_dir": filepath.Dir(*configFile),
			"file_name":   filepath.Base(*configFile),
		}
	case *project != "":
		req.Source = "local"
		req.Settings = map[string]interface{}{"project_dir": *project}
	case *source != "":
		req.Source = *source
		req.Settings = settings.values()
	}

	service := rpc.NewLocalService(providers.NewBuiltinRegistry())
	name, err := service.ResolveUniqueName(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, name)
	return nil
}

func runProviders(stdout io.Writer) error {
	reg := providers.NewBuiltinRegistry()

	type row struct{ id, invariant string }
	var rows []row
	for _, id := range reg.List() {
		invariant, err := providers.InvariantName(reg, id)
		if err != nil {
			return err
		}
		rows = append(rows, row{id: id.String(), invariant: string(invariant)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].invariant < rows[j].invariant })

	name := color.New(color.FgCyan)
	for _, r := range rows {
		fmt.Fprintf(stdout, "%s  %s\n", r.id, name.Sprint(r.invariant))
	}
	return nil
}

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *debug {
		logging.EnableDebug()
	}

	return rpc.Serve(&rpc.ServeConfig{
		Service: rpc.NewLocalService(providers.NewBuiltinRegistry()),
		Debug:   *debug,
	})
}

// settingsFlag collects repeated -set key=value flags.
type settingsFlag map[string]string

func (s settingsFlag) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (s settingsFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	s[key] = val
	return nil
}

func (s settingsFlag) values() map[string]interface{} {
	out := make(map[string]interface{}, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `dbwizard %s

Proposes the connection string and connection string name for the model
wizard's database configuration page.

USAGE:
    dbwizard <command> [flags] [args]

COMMANDS:
    connstr [flags] RAW     Build the connection string for RAW
        -provider NAME|GUID     Provider (default: System.Data.SqlClient)
        -mode MODE              database-first or code-first (default: database-first)
        -model PATH             Model file path (database-first)
        -qualified-name NAME    Resource-qualified model name, required for
                                models below the project root (e.g. Models.Shop)
        -design-time-defaults   Append SqlClient design-time keywords

    name [flags] CANDIDATE  Propose an unused connection string name
        -config FILE            Configuration file
        -project DIR            Project directory with Web.config or App.config
        -source TYPE            memory, local, postgres or s3
        -set KEY=VALUE          Source setting (repeatable)

    providers               List the built-in providers
    serve [-debug]          Serve the wizard as a plugin to an IDE host
    version                 Print version information

EXAMPLES:
    dbwizard connstr -model ./Shop.edmx "Integrated Security=SSPI"
    dbwizard connstr -model ./Models/Shop.edmx -qualified-name Models.Shop "Integrated Security=SSPI"
    dbwizard name -project ./src/Shop ShopEntities
    dbwizard name -source s3 -set bucket=configs -set project=shop ShopEntities
`, dbwizard.Version)
}
