package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"dataforge/internal/card"
	"dataforge/internal/config"
	"dataforge/internal/registry"
	"dataforge/internal/service"
)

var (
	inputPath   string
	outputPath  string
	format      string
	noOptimize  bool
	repoID      string
	localDir    string
	private     bool
	cardPath    string
	commitMsg   string
	split       string
	streaming   bool
	datasetName string
	description string
	categories  []string
	language    string
	licenseTag  string
	version     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dataforge",
		Short: "Convert CSV data to optimized columnar formats and publish to a dataset registry",
	}

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a CSV file to Parquet or Avro with optimized column types",
		Run:   runConvert,
	}
	convertCmd.Flags().StringVar(&inputPath, "input", "", "input CSV file")
	convertCmd.Flags().StringVar(&outputPath, "output", "", "output file (defaults to input with new extension)")
	convertCmd.Flags().StringVar(&format, "format", "parquet", "output format (parquet/avro)")
	convertCmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "skip column type optimization")
	convertCmd.MarkFlagRequired("input")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Profile a CSV file and print its statistics as JSON",
		Run:   runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&inputPath, "input", "", "input CSV file")
	analyzeCmd.MarkFlagRequired("input")

	cardCmd := &cobra.Command{
		Use:   "card",
		Short: "Generate a dataset card from a CSV file",
		Run:   runCard,
	}
	cardCmd.Flags().StringVar(&inputPath, "input", "", "input CSV file")
	cardCmd.Flags().StringVar(&outputPath, "output", "dataset-card.json", "card output path")
	cardCmd.Flags().StringVar(&datasetName, "name", "", "dataset name")
	cardCmd.Flags().StringVar(&description, "description", "", "dataset description")
	cardCmd.Flags().StringSliceVar(&categories, "task", nil, "task category tags (repeatable)")
	cardCmd.Flags().StringVar(&language, "language", "en", "language tag")
	cardCmd.Flags().StringVar(&licenseTag, "license", "MIT", "license tag")
	cardCmd.Flags().StringVar(&version, "version", "0.1.0", "dataset version")
	cardCmd.MarkFlagRequired("input")
	cardCmd.MarkFlagRequired("name")
	cardCmd.MarkFlagRequired("description")

	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Upload a dataset directory (and optional card) to the registry",
		Run:   runPush,
	}
	pushCmd.Flags().StringVar(&localDir, "dir", "", "local dataset directory")
	pushCmd.Flags().StringVar(&repoID, "repo", "", "repository id")
	pushCmd.Flags().BoolVar(&private, "private", false, "create the repository as private")
	pushCmd.Flags().StringVar(&cardPath, "card", "", "dataset card to upload alongside the data")
	pushCmd.Flags().StringVar(&commitMsg, "message", "Upload dataset", "commit message")
	pushCmd.MarkFlagRequired("dir")
	pushCmd.MarkFlagRequired("repo")

	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Download a dataset from the registry",
		Run:   runPull,
	}
	pullCmd.Flags().StringVar(&repoID, "repo", "", "repository id")
	pullCmd.Flags().StringVar(&split, "split", "", "restrict to one split (train/validation/test)")
	pullCmd.Flags().BoolVar(&streaming, "streaming", false, "list files without staging them to disk")
	pullCmd.MarkFlagRequired("repo")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a dataset repository from the registry",
		Run:   runDelete,
	}
	deleteCmd.Flags().StringVar(&repoID, "repo", "", "repository id")
	deleteCmd.Flags().StringVar(&commitMsg, "message", "Delete dataset", "commit message")
	deleteCmd.MarkFlagRequired("repo")

	rootCmd.AddCommand(convertCmd, analyzeCmd, cardCmd, pushCmd, pullCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func newRegistryClient(cfg *config.Config) registry.Client {
	client, err := registry.NewClient(context.Background(), &cfg.Registry)
	if err != nil {
		log.Fatalf("Failed to create registry client: %v", err)
	}
	return client
}

func runConvert(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if noOptimize {
		cfg.Convert.Optimize = false
	}

	svc := service.NewConvertService(cfg.Convert)
	result, err := svc.Convert(inputPath, outputPath, format)
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}
	fmt.Printf("Wrote %s (%d rows, %d columns)\n", result.OutputPath, result.Stats.NumRows, result.Stats.NumCols)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	svc := service.NewConvertService(cfg.Convert)
	stats, err := svc.Analyze(inputPath)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		log.Fatalf("Failed to encode statistics: %v", err)
	}
}

func runCard(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	svc := service.NewConvertService(cfg.Convert)
	stats, err := svc.Analyze(inputPath)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	builder, err := card.NewBuilder(card.Options{
		DatasetName:    datasetName,
		Description:    description,
		TaskCategories: categories,
		Language:       language,
		License:        licenseTag,
		Version:        version,
	})
	if err != nil {
		log.Fatalf("Invalid card options: %v", err)
	}

	statsMap, err := stats.AsMap()
	if err != nil {
		log.Fatalf("Failed to convert statistics: %v", err)
	}
	builder.AddDataStats(statsMap)

	if err := builder.Save(outputPath); err != nil {
		log.Fatalf("Failed to save card: %v", err)
	}
}

func runPush(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	client := newRegistryClient(cfg)

	svc := service.NewPublishService(client)
	repoURL, err := svc.Publish(context.Background(), localDir, repoID, private, cardPath, commitMsg)
	if err != nil {
		log.Fatalf("Publish failed: %v", err)
	}
	fmt.Printf("Published to %s\n", repoURL)
}

func runPull(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	client := newRegistryClient(cfg)

	ds, err := client.Download(context.Background(), repoID, split, streaming)
	if err != nil {
		log.Fatalf("Download failed: %v", err)
	}

	for _, f := range ds.Files {
		fmt.Printf("%s\t%d bytes\n", f.Name, f.Size)
	}
	if ds.Dir != "" {
		fmt.Printf("Staged to %s\n", ds.Dir)
	}
}

func runDelete(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	client := newRegistryClient(cfg)

	if err := client.DeleteRepo(context.Background(), repoID, commitMsg); err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Deleted %s\n", repoID)
}
