// Package main provides the nfgraph CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orneryd/nfgraph/pkg/config"
	"github.com/orneryd/nfgraph/pkg/engine"
	"github.com/orneryd/nfgraph/pkg/storage"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nfgraph",
		Short: "nfgraph - embedded property-graph query engine",
		Long: `nfgraph executes a Cypher subset against a SQLite-backed
property graph: MATCH, OPTIONAL MATCH, CREATE, MERGE, SET, DELETE,
WITH, UNWIND, RETURN, and CALL. UNION is parsed but not executed.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nfgraph v%s\n", version)
		},
	})

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single Cypher statement and print JSON",
		RunE:  runOnce,
	}
	runCmd.Flags().String("db", "", "SQLite file path (overrides NFGRAPH_DB_PATH)")
	runCmd.Flags().String("config", "", "YAML config file (overrides env vars)")
	runCmd.Flags().String("query", "", "Cypher statement to execute")
	runCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(runCmd)

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive Cypher REPL",
		RunE:  runShell,
	}
	shellCmd.Flags().String("db", "", "SQLite file path (overrides NFGRAPH_DB_PATH)")
	shellCmd.Flags().String("config", "", "YAML config file (overrides env vars)")
	rootCmd.AddCommand(shellCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newEngine(cmd *cobra.Command) (*engine.Engine, *storage.SQLiteStore, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dbFlag, _ := cmd.Flags().GetString("db"); dbFlag != "" {
		cfg.Database.Path = dbFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	store, err := storage.NewSQLiteStore(cfg.Database.Path, log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	return engine.New(store, log), store, nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	eng, store, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	query, _ := cmd.Flags().GetString("query")
	resp, err := eng.Execute(context.Background(), query, nil)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runShell(cmd *cobra.Command, args []string) error {
	eng, store, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("nfgraph shell — type a Cypher statement, or 'exit' to quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("nfgraph> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		resp, err := eng.Execute(context.Background(), line, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if resp.Error != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", resp.Error.Message)
			continue
		}
		printTable(resp.Columns, resp.Data)
	}
	return scanner.Err()
}

func printTable(columns []string, rows []map[string]interface{}) {
	if len(columns) == 0 {
		fmt.Println("(no columns)")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			b, _ := json.Marshal(row[col])
			cells[i] = string(b)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Printf("(%d rows)\n\n", len(rows))
}
