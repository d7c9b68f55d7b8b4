// Command dnxdeps resolves the dependencies of project.json based projects.
//
// Usage:
//
//	dnxdeps resolve [dir] [--framework net45] [--packages ~/.dnx/packages] [--format json] [--lock]
//	dnxdeps runtime-framework dnx-coreclr-win7-x64.1.0
//	dnxdeps sources [dir]
//	dnxdeps host [--watch] [--metrics-addr :9090]
//
// Every flag can also be set through a DNXDEPS_ environment variable, e.g.
// DNXDEPS_CONFIGURATION=Release, or in a .dnxdeps.yaml file in the working
// directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(afero.NewOsFs(), os.Stdin, os.Stdout, os.Stderr)
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
