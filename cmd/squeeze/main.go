// Command squeeze compresses PNG and JPEG images from the command line.
//
// Usage:
//
//	squeeze compress [flags] INPUT [OUTPUT]
//	squeeze batch [flags] --out DIR INPUT...
//	squeeze inspect INPUT
//	squeeze config init PATH
//	squeeze config show
//
// Examples:
//
//	squeeze compress photo.jpg small.jpg
//	squeeze compress --format png --quality 60 screenshot.png
//	squeeze compress --algorithm fast-jpeg --max-width 1920 photo.jpg
//	squeeze batch --out compressed/ *.jpg
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shamspias/squeeze"
	"github.com/shamspias/squeeze/internal/config"
	"github.com/shamspias/squeeze/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

var rootCmd = &cobra.Command{
	Use:               "squeeze",
	Short:             "Compress PNG and JPEG images",
	Long:              `Squeeze re-encodes PNG and JPEG images as smaller JPEG or palette PNG files, applying EXIF orientation and optional resizing.`,
	Version:           squeeze.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var compressCmd = &cobra.Command{
	Use:   "compress INPUT [OUTPUT]",
	Short: "Compress a single image",
	Long:  `Compresses INPUT and writes OUTPUT. Without OUTPUT the result is written next to INPUT with a _compressed suffix.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCompress,
}

var batchCmd = &cobra.Command{
	Use:   "batch INPUT...",
	Short: "Compress many images concurrently",
	Long:  `Compresses every INPUT into the --out directory using max_concurrent_jobs workers.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect INPUT",
	Short: "Analyze an image without compressing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init PATH",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configPath string
	debug      bool

	format    string
	quality   int
	algorithm string
	maxWidth  int
	maxHeight int
	outDir    string

	cfg        *config.Config
	log        *zap.Logger
	compressor *squeeze.Compressor
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: ./squeeze.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{compressCmd, batchCmd} {
		cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: auto|jpeg|png|webp (default from config)")
		cmd.Flags().IntVarP(&quality, "quality", "q", 0, "Quality 1-100 (default from config)")
		cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "Algorithm: "+strings.Join(squeeze.AlgorithmNames(), "|")+" (default from config)")
		cmd.Flags().IntVar(&maxWidth, "max-width", 0, "Maximum width (0 = no limit)")
		cmd.Flags().IntVar(&maxHeight, "max-height", 0, "Maximum height (0 = no limit)")
	}
	batchCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	_ = batchCmd.MarkFlagRequired("out")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(compressCmd, batchCmd, inspectCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	log, err = logger.New("squeeze", logger.Options{Level: level, JSON: cfg.Logging.JSONFormat})
	if err != nil {
		return err
	}
	compressor = squeeze.New(squeeze.WithLogger(log))
	return nil
}

func runCompress(cmd *cobra.Command, args []string) error {
	defer log.Sync()

	req, err := buildRequest(cfg.Compression)
	if err != nil {
		return err
	}

	input := args[0]
	data, err := squeeze.ReadImageFile(input, cfg.Compression.MaxFileSizeBytes())
	if err != nil {
		return err
	}
	result, err := compressor.Compress(data, req)
	if err != nil {
		return err
	}

	output := outputPath(input, result.Format)
	if len(args) == 2 {
		output = args[1]
	}
	if err := result.Save(output); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result)
	for _, note := range result.Notes {
		fmt.Fprintf(out, "note: %s\n", note)
	}
	fmt.Fprintf(out, "exif: %s\n", result.ExifSummary)
	fmt.Fprintf(out, "saved as %s\n", output)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	defer log.Sync()

	req, err := buildRequest(cfg.Compression)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	batchLog := log.With(zap.String("batch_id", uuid.NewString()))
	items := batchItems(args, outDir, req.Format)
	results := compressor.CompressBatch(ctx, items, squeeze.BatchOptions{
		Workers:  cfg.Compression.MaxConcurrentJobs,
		Request:  req,
		MaxBytes: cfg.Compression.MaxFileSizeBytes(),
		OnItem: func(completed, total int) {
			batchLog.Debug("batch progress", zap.Int("completed", completed), zap.Int("total", total))
		},
	})

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", r.Item.Src, r.Err)
			continue
		}
		fmt.Fprintf(out, "OK   %s\n", r.Result)
	}
	summary := squeeze.Summarize(results)
	fmt.Fprintln(out, summary)
	batchLog.Info("batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Total)
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := squeeze.ReadImageFile(args[0], cfg.Compression.MaxFileSizeBytes())
	if err != nil {
		return err
	}
	analysis, err := squeeze.Analyze(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file: %s\n", args[0])
	fmt.Fprintf(out, "size: %s\n", humanBytes(int64(len(data))))
	fmt.Fprintln(out, analysis)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteSample(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// buildRequest merges the command-line flags over the configured defaults.
func buildRequest(defaults config.CompressionConfig) (squeeze.Request, error) {
	f := format
	if f == "" {
		f = defaults.DefaultFormat
	}
	q := quality
	if q == 0 {
		q = defaults.DefaultQuality
	}
	alg := algorithm
	if alg == "" {
		alg = defaults.DefaultAlgorithm
	}

	var bounds *squeeze.Bounds
	if maxWidth != 0 || maxHeight != 0 {
		bounds = &squeeze.Bounds{MaxWidth: maxWidth, MaxHeight: maxHeight}
	}
	return squeeze.NewRequest(f, q, alg, bounds)
}

// outputPath derives INPUT_compressed.EXT. Auto keeps the input extension.
func outputPath(input string, f squeeze.Format) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	if f != squeeze.Auto {
		ext = f.Extension()
	}
	return base + "_compressed" + ext
}

func batchItems(inputs []string, dir string, f squeeze.Format) []squeeze.BatchItem {
	items := make([]squeeze.BatchItem, len(inputs))
	for i, in := range inputs {
		items[i] = squeeze.BatchItem{
			Src: in,
			Dst: filepath.Join(dir, filepath.Base(outputPath(in, f))),
		}
	}
	return items
}

func humanBytes(b int64) string {
	switch {
	case b >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.1f KB", float64(b)/1024)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
