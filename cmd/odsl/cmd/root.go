package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "odsl",
	Short: "O-DSL interpreter",
	Long: `odsl is an interactive interpreter for O-DSL, a K-family array
language with monadic/dyadic verbs, adverbs, lambdas, conditionals,
vectors, dictionaries and lexically-scoped names.

Programs run on a CPS trampoline over an arena-backed AST; tasks may
suspend on intercore channel operations (pub/sub/snd/rcv/spawn) serviced
by a cooperative scheduler.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
