package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reqstash [flags] [NAMESPACE|URL]",
	Short: "Send HTTP requests and keep their definitions under namespaces",
	Long: `reqstash sends a single HTTP request and can save its definition under a
namespace such as "SystemA/example" so it can be replayed, edited or deleted later.

Each (namespace, method) pair is stored as <root>/<namespace>/<METHOD>.json.
Flags given on the command line override the stored definition for that run;
--save writes the merged result back.

When the argument starts with http:// or https:// it is used as the URL and
nothing is loaded from storage. Without an argument only --url is used.`,
	Example: `  reqstash https://httpbin.org/get
  reqstash -X POST -u https://api.example.com/items -j '{"name":"widget"}' -s SystemA/items
  reqstash -X POST SystemA/items -H "Authorization: Bearer $TOKEN"
  reqstash --delete -X POST SystemA/items
  reqstash --delete-all SystemA
  reqstash -i`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRequest,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   showVersion,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output mode (console, json)")
	rootCmd.PersistentFlags().String("root", "", "Storage root for saved requests")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	addRequestFlags(rootCmd.Flags())

	rootCmd.MarkFlagsMutuallyExclusive("delete", "delete-all")
	rootCmd.MarkFlagsMutuallyExclusive("save", "delete")
	rootCmd.MarkFlagsMutuallyExclusive("save", "delete-all")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	bindFlags(rootCmd)

	rootCmd.AddCommand(versionCmd, listCmd, showCmd, historyCmd)
}

// addRequestFlags registers the flags that shape one request.
func addRequestFlags(flags *pflag.FlagSet) {
	flags.StringP("request", "X", "GET", "HTTP method (GET, POST, PUT, DELETE)")
	flags.StringArrayP("header", "H", nil, `Request header "Key: Value" (repeatable)`)
	flags.StringP("data", "d", "", "Request body, always sent as a JSON string")
	flags.StringP("value", "v", "", "Request body, sent as JSON when it parses")
	flags.StringP("json", "j", "", "JSON request body, wins over --value and --data")
	flags.StringP("url", "u", "", "Destination URL")
	flags.Int("timeout", 0, "Request timeout in seconds (default from dispatch.timeout, 30)")
	flags.BoolP("save", "s", false, "Save the effective request under NAMESPACE")
	flags.Bool("delete", false, "Delete the saved request for NAMESPACE and method")
	flags.Bool("delete-all", false, "Delete NAMESPACE with every method and nested namespace")
	flags.BoolP("yes", "y", false, "Do not ask for confirmation before --delete-all")
	flags.BoolP("interactive", "i", false, "Choose NAMESPACE from the saved tree")
	flags.StringP("query", "q", "", "gjson path applied to a JSON response body")
	flags.Bool("include", false, "Print response headers")
	flags.Bool("raw", false, "Write the response body verbatim to stdout")
	flags.Bool("insecure", false, "Skip TLS certificate verification")
}

func bindFlags(cmd *cobra.Command) {
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.mode", cmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("storage.root", cmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("output.include_headers", cmd.Flags().Lookup("include"))
	viper.BindPFlag("dispatch.tls_insecure_skip_verify", cmd.Flags().Lookup("insecure"))
}

func showVersion(cmd *cobra.Command, args []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "reqstash version %s\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
	fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", buildDate)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(exitCode(err))
	}
}
