package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	dnxdeps "github.com/albertocavalcante/go-dnxdeps"
	"github.com/albertocavalcante/go-dnxdeps/manifest"
)

// app carries the command environment so commands can run against any filesystem
// and streams.
type app struct {
	fs     afero.Fs
	v      *viper.Viper
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	log    *slog.Logger
}

func newApp(fs afero.Fs, in io.Reader, out, errOut io.Writer) *app {
	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix("DNXDEPS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &app{
		fs:     fs,
		v:      v,
		in:     in,
		out:    out,
		errOut: errOut,
		log:    slog.New(slog.DiscardHandler),
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dnxdeps",
		Short:         "Resolve project.json dependency graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := a.readConfig(); err != nil {
				return err
			}
			a.setupLogging()
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "config file (default .dnxdeps.yaml in the working directory)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log resolution details to stderr")
	root.PersistentFlags().StringSlice("packages", nil, "unpacked package directories, in priority order")
	root.PersistentFlags().String("configuration", dnxdeps.DefaultConfiguration, "build configuration")

	root.AddCommand(
		a.resolveCmd(),
		a.runtimeFrameworkCmd(),
		a.sourcesCmd(),
		a.hostCmd(),
	)
	return root
}

// readConfig loads the config file. A missing default file is not an error.
func (a *app) readConfig() error {
	if file := a.v.GetString("config"); file != "" {
		a.v.SetConfigFile(file)
	} else {
		a.v.SetConfigName(".dnxdeps")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
	}
	err := a.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (a *app) setupLogging() {
	level := slog.LevelWarn
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
}

// contextOptions builds the options shared by every dependency context.
func (a *app) contextOptions() []dnxdeps.Option {
	opts := []dnxdeps.Option{dnxdeps.WithFS(a.fs), dnxdeps.WithLogger(a.log)}
	for _, dir := range a.v.GetStringSlice("packages") {
		opts = append(opts, dnxdeps.WithPackagesDir(dir))
	}
	return opts
}

func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func (a *app) runtimeFrameworkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runtime-framework <runtime-id>",
		Short: "Print the target framework a runtime runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			fw, ok := dnxdeps.FrameworkForRuntime(args[0])
			if !ok {
				return fmt.Errorf("unknown runtime identifier %q", args[0])
			}
			fmt.Fprintf(a.out, "%s\t%s\n", fw.ShortName(), fw.String())
			return nil
		},
	}
}

func (a *app) sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources [dir]",
		Short: "List the source files of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := projectDir(args)
			if !manifest.HasManifest(a.fs, dir) {
				return fmt.Errorf("%s: %w", dir, dnxdeps.ErrNoManifest)
			}
			p, err := manifest.Parse(a.fs, dir)
			if err != nil {
				return err
			}
			files, err := manifest.SourceFiles(a.fs, p)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(a.out, f)
			}
			return nil
		},
	}
}
