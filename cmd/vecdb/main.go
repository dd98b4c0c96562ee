// Package main provides the vecdb CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arashan/vecdb/pkg/config"
	"github.com/arashan/vecdb/pkg/index"
	"github.com/arashan/vecdb/pkg/persistence"
	"github.com/arashan/vecdb/pkg/store"
	"github.com/arashan/vecdb/pkg/vector"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vecdb",
		Short: "vecdb - an embeddable vector similarity search engine",
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vecdb v%s\n", version)
		},
	})

	insertCmd := &cobra.Command{
		Use:   "insert <id>",
		Short: "Insert a vector",
		Args:  cobra.ExactArgs(1),
		RunE:  runInsert,
	}
	insertCmd.Flags().StringP("vector", "v", "", "vector data as comma-separated values (e.g., \"1.0,2.0,3.0\")")
	insertCmd.Flags().StringToStringP("meta", "m", nil, "metadata fields as key=value pairs")
	insertCmd.MarkFlagRequired("vector")
	rootCmd.AddCommand(insertCmd)

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for similar vectors",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntP("k", "k", 5, "number of results to return")
	searchCmd.Flags().StringToString("filter", nil, "metadata equality filter as key=value pairs, ANDed together")
	rootCmd.AddCommand(searchCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a vector",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
	rootCmd.AddCommand(deleteCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all vector IDs",
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Force a snapshot and WAL truncate",
		RunE:  runCheckpoint,
	}
	rootCmd.AddCommand(checkpointCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show runtime metrics",
		RunE:  runStats,
	}
	rootCmd.AddCommand(statsCmd)

	rootCmd.PersistentFlags().String("data-dir", "", "data directory (overrides VECDB_DATA_DIR / config default)")
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openEngine(cmd *cobra.Command) (*persistence.Engine, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dataDirFlag, _ := cmd.Flags().GetString("data-dir")

	var base *config.Config
	if configPath != "" {
		c, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		base = c
	}
	cfg := config.LoadFromEnv(base)
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	metric, err := cfg.DistanceMetric()
	if err != nil {
		return nil, err
	}

	engineCfg := persistence.DefaultEngineConfig()
	engineCfg.Metric = metric
	engineCfg.CheckpointInterval = cfg.CheckpointInterval
	engineCfg.HNSW = index.NewHNSWParams(cfg.HNSW.M, cfg.HNSW.EfConstruction, cfg.HNSW.EfSearch)

	return persistence.Open(cfg.DataDir, engineCfg)
}

func runInsert(cmd *cobra.Command, args []string) error {
	id := args[0]
	vecStr, _ := cmd.Flags().GetString("vector")
	metaFields, _ := cmd.Flags().GetStringToString("meta")

	vec, err := vector.Parse(vecStr)
	if err != nil {
		return err
	}

	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	if len(metaFields) > 0 {
		meta := store.NewMetadata()
		for k, v := range metaFields {
			meta.Insert(k, v)
		}
		if err := engine.InsertWithMetadata(id, vec, meta); err != nil {
			return err
		}
	} else if err := engine.Insert(id, vec); err != nil {
		return err
	}

	fmt.Printf("Inserted vector with ID: %s\n", id)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	queryStr := args[0]
	k, _ := cmd.Flags().GetInt("k")
	filterFields, _ := cmd.Flags().GetStringToString("filter")

	query, err := vector.Parse(queryStr)
	if err != nil {
		return err
	}

	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	var results []store.Result
	if len(filterFields) > 0 {
		children := make([]store.Filter, 0, len(filterFields))
		for field, value := range filterFields {
			children = append(children, store.Eq{Field: field, Value: value})
		}
		results, err = engine.SearchWithFilter(query, k, store.And{Children: children})
	} else {
		results, err = engine.Search(query, k)
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	fmt.Printf("Top %d results:\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s (distance: %.4f)\n", i+1, r.ID, r.Distance)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	if _, err := engine.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted vector with ID: %s\n", id)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	ids := engine.ListIDs()
	if len(ids) == 0 {
		fmt.Println("No vectors in store")
		return nil
	}

	fmt.Printf("Vector IDs (%d total):\n", len(ids))
	for _, id := range ids {
		fmt.Printf("  - %s\n", id)
	}
	return nil
}

func runCheckpoint(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Checkpoint(); err != nil {
		return err
	}
	fmt.Println("Checkpoint complete")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	m := engine.Metrics()
	fmt.Printf("Vectors:        %d\n", engine.Len())
	fmt.Printf("Total inserts:  %d\n", m.TotalInserts())
	fmt.Printf("Total deletes:  %d\n", m.TotalDeletes())
	fmt.Printf("Total queries:  %d\n", m.TotalQueries())
	fmt.Printf("Avg latency:    %.2f us\n", m.AvgQueryLatencyUs())
	fmt.Printf("p99 latency:    %.2f us\n", m.PercentileQueryLatencyUs(99))
	return nil
}
