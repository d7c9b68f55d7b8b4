package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	dnxdeps "github.com/albertocavalcante/go-dnxdeps"
	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/graph"
	"github.com/albertocavalcante/go-dnxdeps/lockfile"
)

func (a *app) resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [dir]",
		Short: "Resolve a project's dependency graph",
		Long: `Resolve the dependencies of the project in dir (default: the working
directory) for each of its target frameworks, or only for --framework.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.resolve(cmd.Context(), projectDir(args))
		},
	}
	cmd.Flags().String("framework", "", "resolve for this framework only, e.g. net45")
	cmd.Flags().String("format", "text", "output format: text, json or dot")
	cmd.Flags().String("explain", "", "explain why a library is in the graph")
	cmd.Flags().Bool("lock", false, "write "+lockfile.FileName+" next to the manifest")
	return cmd
}

func (a *app) resolve(ctx context.Context, dir string) error {
	format := a.v.GetString("format")
	switch format {
	case "text", "json", "dot":
	default:
		return fmt.Errorf("unknown format %q (want text, json or dot)", format)
	}

	graphs, err := a.resolveGraphs(ctx, dir)
	if err != nil {
		return err
	}

	if name := a.v.GetString("explain"); name != "" {
		for _, g := range graphs {
			text, err := g.ToExplainText(name)
			if err != nil {
				return fmt.Errorf("%s: %w", g.Framework.ShortName(), err)
			}
			fmt.Fprintf(a.out, "[%s]\n%s\n", g.Framework.ShortName(), text)
		}
	} else if err := writeGraphs(a.out, format, graphs); err != nil {
		return err
	}

	if a.v.GetBool("lock") {
		path := lockfile.DefaultPath(dir)
		if err := lockfile.FromGraphs(graphs...).WriteFile(a.fs, path); err != nil {
			return err
		}
		a.log.Info("wrote lock file", "path", path)
	}
	return nil
}

// resolveGraphs resolves every target framework of the project, or only the one
// named by --framework.
func (a *app) resolveGraphs(ctx context.Context, dir string) ([]*graph.Graph, error) {
	configuration := a.v.GetString("configuration")
	opts := a.contextOptions()

	if text := a.v.GetString("framework"); text != "" {
		fw := framework.Parse(text)
		if fw.IsUnsupported() {
			return nil, fmt.Errorf("unsupported framework %q", text)
		}
		c, err := dnxdeps.New(dir, configuration, fw, opts...)
		if err != nil {
			return nil, err
		}
		g, err := c.WalkProject(ctx)
		if err != nil {
			return nil, err
		}
		return []*graph.Graph{g}, nil
	}

	res, err := dnxdeps.ResolveProject(ctx, dir, configuration, opts...)
	if err != nil {
		return nil, err
	}
	graphs := make([]*graph.Graph, 0, len(res.Targets))
	for _, t := range res.Targets {
		graphs = append(graphs, t.Graph)
	}
	return graphs, nil
}

func writeGraphs(w io.Writer, format string, graphs []*graph.Graph) error {
	switch format {
	case "json":
		docs := make([]json.RawMessage, 0, len(graphs))
		for _, g := range graphs {
			data, err := g.ToJSON()
			if err != nil {
				return err
			}
			docs = append(docs, data)
		}
		if len(docs) == 1 {
			_, err := fmt.Fprintf(w, "%s\n", docs[0])
			return err
		}
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case "dot":
		for _, g := range graphs {
			if _, err := io.WriteString(w, g.ToDOT()); err != nil {
				return err
			}
		}
		return nil

	default:
		for i, g := range graphs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if _, err := io.WriteString(w, g.ToText()); err != nil {
				return err
			}
		}
		return nil
	}
}
