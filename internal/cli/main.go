package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "clipforge <input>",
		Short:        "Cut viral vertical clips out of a video file or URL",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("out", "out", "Output directory")
	root.Flags().String("segments", "", "JSON file with [{start,end,title}] windows in seconds (skips the analyzer)")
	root.Flags().Int("workers", 0, "Parallel segment workers (0 = config default)")
	root.Flags().Bool("no-vertical", false, "Skip the 9:16 reframe, keep original framing")
	root.Flags().Bool("no-subtitles", false, "Skip subtitle burn-in")
	root.Flags().String("style", "", "Subtitle style: short-form or traditional")
	root.Flags().String("smoothing", "", "Tracking smoothing: low, medium, high, very_high")
	root.Flags().String("quality", "", "Download quality tier: 4k, 1440p, 1080p, 720p, best")

	// Hidden tuning flags (internal)
	root.Flags().String("codec", "", "Export codec: h264, h265, av1")
	root.Flags().Int("font-size", 0, "Subtitle font size in PlayRes units")
	_ = root.Flags().MarkHidden("codec")
	_ = root.Flags().MarkHidden("font-size")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
