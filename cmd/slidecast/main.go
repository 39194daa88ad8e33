package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keagan/slidecast/internal/builder"
	"github.com/keagan/slidecast/internal/config"
	"github.com/keagan/slidecast/internal/ffmpeg"
	"github.com/keagan/slidecast/internal/logging"
)

var (
	cfgFile string
	verbose bool

	sourceDir  string
	outputPath string
	force      bool
	startAt    int
	limit      int
	chunkSize  int
	chunkIndex int
	batch      bool
	keepTemp   bool
	poll       time.Duration

	debugFilename bool
	labelYear     bool
	labelFont     string
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "slidecast",
	Short: "slidecast - incremental slideshow video builder",
	Long: "Builds a slideshow video from a directory of images, clips, caption text, " +
		"and audio, re-rendering only the segments whose inputs changed.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env may carry SLIDECAST_FFMPEG / SLIDECAST_FFPROBE overrides.
		_ = godotenv.Load()

		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, cfg)

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

// applyFlagOverrides lets explicit flags win over document values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("source") {
		cfg.SourceDir = sourceDir
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = outputPath
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.ChunkSize = chunkSize
	}
	if cmd.Flags().Changed("chunk-index") {
		cfg.ChunkIndex = chunkIndex
	}
	if cmd.Flags().Changed("keep-temp") {
		cfg.KeepTemp = keepTemp
	}
	if cmd.Flags().Changed("debug-filename") {
		cfg.DebugFilename = debugFilename
	}
	if cmd.Flags().Changed("label-year") {
		cfg.LabelYear = labelYear
	}
	if cmd.Flags().Changed("label-font") {
		cfg.LabelFont = labelFont
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&sourceDir, "source", "s", "", "source asset directory")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "output video path")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0, "groups per chunk (0 disables chunking)")
	rootCmd.PersistentFlags().IntVar(&chunkIndex, "chunk-index", 1, "1-based chunk to build")
	rootCmd.PersistentFlags().BoolVar(&keepTemp, "keep-temp", false, "keep intermediate files")
	rootCmd.PersistentFlags().BoolVar(&debugFilename, "debug-filename", false, "overlay each segment's source filename")
	rootCmd.PersistentFlags().BoolVar(&labelYear, "label-year", false, "overlay the year inferred from the filename")
	rootCmd.PersistentFlags().StringVar(&labelFont, "label-font", "", "font file for the year/debug labels")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(planCmd)
}

func newBuilder(cmd *cobra.Command, opts builder.Options) (*builder.Builder, error) {
	cfg := config.FromContext(cmd.Context())

	exec, err := ffmpeg.New(log.Logger, cfg.FFmpegPath, cfg.FFprobePath)
	if err != nil {
		return nil, err
	}

	opts.ConfigPath = cfgFile
	return builder.New(cfg, exec, log.Logger, opts)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the slideshow video",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder(cmd, builder.Options{
			Force:   force,
			StartAt: startAt,
			Limit:   limit,
		})
		if err != nil {
			return err
		}

		if batch {
			results, err := b.BuildBatch(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("chunks", len(results)).Msg("batch done")
			return nil
		}

		result, err := b.Build(cmd.Context())
		if err != nil {
			return err
		}

		log.Info().
			Str("output", result.Output).
			Int("segments", result.Segments).
			Int("rendered", result.Rendered).
			Int("reused", result.Reused).
			Msg("done")
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever source assets change",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		b, err := newBuilder(cmd, builder.Options{Force: force})
		if err != nil {
			return err
		}

		var source builder.ChangeSource
		if poll > 0 {
			source = builder.NewPollSource(cfg.SourceDir, poll)
		} else {
			source, err = builder.NewNotifySource(b.WatchPaths(), log.Logger)
			if err != nil {
				log.Warn().Err(err).Msg("file notifications unavailable; falling back to polling")
				source = builder.NewPollSource(cfg.SourceDir, 0)
			}
		}

		log.Info().Str("dir", cfg.SourceDir).Msg("watching for changes")
		return b.Watch(cmd.Context(), source)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a build would render without rendering",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder(cmd, builder.Options{
			Force:   force,
			DryRun:  true,
			StartAt: startAt,
			Limit:   limit,
		})
		if err != nil {
			return err
		}

		result, err := b.Build(cmd.Context())
		if err != nil {
			return err
		}

		log.Info().
			Int("segments", result.Segments).
			Int("stale", result.Rendered).
			Int("cached", result.Reused).
			Msg("plan complete")
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{buildCmd, planCmd} {
		cmd.Flags().BoolVarP(&force, "force", "f", false, "re-render every segment")
		cmd.Flags().IntVar(&startAt, "start-at", 0, "1-based segment to start from")
		cmd.Flags().IntVar(&limit, "limit", 0, "maximum segments to build (0 = all)")
	}
	buildCmd.Flags().BoolVar(&batch, "batch", false, "render every chunk to its own numbered output")
	watchCmd.Flags().BoolVarP(&force, "force", "f", false, "re-render every segment on each pass")
	watchCmd.Flags().DurationVar(&poll, "poll", 0, "poll interval instead of file notifications")
}
