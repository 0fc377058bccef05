package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"captext/config"
	"captext/pipeline"
	"captext/youtube"
)

func main() {
	args := os.Args[1:]
	command := "run"
	if len(args) > 0 {
		switch args[0] {
		case "run", "list", "convert":
			command = args[0]
			args = args[1:]
		case "help", "-h", "--help":
			printUsage()
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case "run":
		cmdRun(ctx, args)
	case "list":
		cmdList(ctx, args)
	case "convert":
		cmdConvert(ctx, args)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `captext - YouTube caption downloader and text cleaner

Usage:
  captext run [flags] [url]      Download, convert, and clean captions (default)
  captext list [flags] <url>     List videos and write the numbered list file
  captext convert [flags] [dir]  Convert leftover VTT files in a directory
  captext help                   Show this help message

Examples:
  captext https://www.youtube.com/@somechannel        # Full pipeline
  captext run -max 5 <url>                            # First five videos only
  captext run -aggressive <url>                       # Strip fillers inside lines
  captext list <url>                                  # Just write the list file
  captext convert ./captions                          # Convert stray VTT files

With no URL given anywhere, captext prompts on stdin.
Configuration comes from CAPTEXT_* environment variables, a .env file,
or captext.json. Requires yt-dlp: https://github.com/yt-dlp/yt-dlp
`)
}

func cmdRun(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	maxVideos := fs.String("max", "", `Process only the first N videos ("all" = no limit)`)
	destDir := fs.String("dest", "", "Destination directory for text output")
	listFile := fs.String("list", "", "Path for the persisted video list file")
	aggressive := fs.Bool("aggressive", false, "Also remove filler phrases inside lines")
	noJSON := fs.Bool("no-json", false, "Skip the JSON metadata sidecar")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: captext run [flags] [url]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg := loadConfig()
	if *maxVideos != "" {
		cfg.TopN = *maxVideos
	}
	if *destDir != "" {
		cfg.DestDir = *destDir
	}
	if *listFile != "" {
		cfg.InputList = *listFile
	}
	if *aggressive {
		cfg.RemoveInlineFillers = true
	}
	if *noJSON {
		cfg.WriteMetadataJSON = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	startURL := resolveStartURL(fs.Args())
	if startURL == "" {
		fmt.Fprintln(os.Stderr, "No URL provided, exiting.")
		os.Exit(1)
	}

	runner, err := pipeline.NewRunner(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runner.Run(ctx, startURL); err != nil {
		reportFatal(err)
	}
}

func cmdList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	maxVideos := fs.Int("max", 0, "Maximum videos to list (0 = all)")
	listFile := fs.String("out", "", "Path for the persisted list file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: captext list [flags] <url>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg := loadConfig()
	if *listFile != "" {
		cfg.InputList = *listFile
	}

	startURL := resolveStartURL(fs.Args())
	if startURL == "" {
		fmt.Fprintln(os.Stderr, "No URL provided, exiting.")
		os.Exit(1)
	}

	runner, err := pipeline.NewRunner(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Fetching video list from %s...\n", startURL)
	entries, err := runner.Lister.ListVideos(ctx, startURL, &youtube.ListOptions{MaxResults: *maxVideos})
	if err != nil {
		reportFatal(err)
	}
	if len(entries) == 0 {
		fmt.Println("No videos found.")
		return
	}

	if err := youtube.WriteListFile(cfg.InputList, entries); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tVIDEO ID\tTITLE")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\n", e.Index, e.ID, truncate(e.Title, 60))
	}
	w.Flush()
	fmt.Fprintf(os.Stderr, "\nTotal: %d videos, saved to %s\n", len(entries), cfg.InputList)
}

func cmdConvert(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	noJSON := fs.Bool("no-json", false, "Skip the JSON metadata sidecar")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: captext convert [flags] [dir]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg := loadConfig()
	if *noJSON {
		cfg.WriteMetadataJSON = false
	}

	dir := cfg.DestDir
	if argv := fs.Args(); len(argv) > 0 {
		dir = argv[0]
	}

	runner, err := pipeline.NewRunner(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := runner.ConvertDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// resolveStartURL takes the URL from the command line, the environment,
// or an interactive prompt, in that order.
func resolveStartURL(argv []string) string {
	if len(argv) > 0 {
		return strings.TrimSpace(argv[0])
	}
	if v := strings.TrimSpace(os.Getenv("CAPTEXT_START_URL")); v != "" {
		return v
	}
	fmt.Fprint(os.Stderr, "Enter a YouTube channel/playlist/video URL: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// reportFatal prints a friendly message for known failures and exits.
func reportFatal(err error) {
	if errors.Is(err, youtube.ErrYtdlpNotInstalled) {
		fmt.Fprintln(os.Stderr, "Error: yt-dlp is not installed or not on PATH.")
		fmt.Fprintln(os.Stderr, "Install it from https://github.com/yt-dlp/yt-dlp and try again,")
		fmt.Fprintln(os.Stderr, "or point CAPTEXT_YTDLP_PATH at the executable.")
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
