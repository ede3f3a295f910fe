// Command-line front end for the ltsc token sequence compressor.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/nobletooth/ltsc/pkg/ltsc"
	"github.com/nobletooth/ltsc/pkg/types"
	"github.com/nobletooth/ltsc/pkg/utils"
)

var printVersion = flag.Bool("print_version", false, "Print the version and exit.")

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ltsc <command> [flags]

Commands:
  compress    read a token sequence and write its compressed form
  decompress  read a compressed token sequence and write the original tokens
  discover    read a token sequence and list repeated subsequences found in it

Run 'ltsc <command> -h' for flags of a given command.
`)
}

func main() {
	if len(os.Args) < 2 || strings.HasPrefix(strings.TrimLeft(os.Args[1], "-"), "print_version") {
		flag.Parse()
		utils.InitLogging()
		if *printVersion {
			printBuildInfo()
			return
		}
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "compress":
		runCompress(args)
	case "decompress":
		runDecompress(args)
	case "discover":
		runDiscover(args)
	case "version":
		flag.CommandLine.Parse(args)
		utils.InitLogging()
		printBuildInfo()
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "ltsc: unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}
}

func printBuildInfo() {
	slog.Info("ltsc build info.", "version", ltsc.Version(), "commit", ltsc.Commit(), "formatVersion", ltsc.FormatVersion)
}

func configFlags(fs *flag.FlagSet, cfg *types.CompressionConfig) {
	fs.IntVar(&cfg.MinSubsequenceLength, "min_length", cfg.MinSubsequenceLength, "Minimum subsequence length to consider.")
	fs.IntVar(&cfg.MaxSubsequenceLength, "max_length", cfg.MaxSubsequenceLength, "Maximum subsequence length to consider.")
	fs.StringVar(&cfg.SelectionMode, "selection_mode", cfg.SelectionMode, "Occurrence selection mode: greedy/optimal.")
	fs.BoolVar(&cfg.HierarchicalEnabled, "hierarchical", cfg.HierarchicalEnabled, "Run further compression passes over the body.")
	fs.IntVar(&cfg.HierarchicalMaxDepth, "hierarchical_depth", cfg.HierarchicalMaxDepth, "Max hierarchical passes.")
	fs.BoolVar(&cfg.Verify, "verify", cfg.Verify, "Verify the round-trip before returning a result.")
}

func runCompress(args []string) {
	fs := flag.NewFlagSet("compress", flag.ExitOnError)
	input := fs.String("input", "-", "Input file of tokens, or - for stdin.")
	output := fs.String("output", "-", "Output file for compressed tokens, or - for stdout.")
	cfg := ltsc.DefaultConfig()
	configFlags(fs, &cfg)
	logHandlerAndLevelFlags(fs)
	fs.Parse(args)
	utils.InitLogging()

	tokens, err := readTokens(*input)
	if err != nil {
		slog.Error("Failed to read input tokens.", "err", err)
		os.Exit(1)
	}

	result, err := ltsc.Compress(tokens, cfg)
	if err != nil {
		slog.Error("Compression failed.", "err", err)
		os.Exit(1)
	}
	slog.Info("Compression finished.", "originalLength", result.OriginalLength,
		"compressedLength", result.CompressedLength, "ratio", result.CompressionRatio())

	if err := writeTokens(*output, result.SerializedTokens); err != nil {
		slog.Error("Failed to write output tokens.", "err", err)
		os.Exit(1)
	}
}

func runDecompress(args []string) {
	fs := flag.NewFlagSet("decompress", flag.ExitOnError)
	input := fs.String("input", "-", "Input file of compressed tokens, or - for stdin.")
	output := fs.String("output", "-", "Output file for decompressed tokens, or - for stdout.")
	cfg := ltsc.DefaultConfig()
	configFlags(fs, &cfg)
	logHandlerAndLevelFlags(fs)
	fs.Parse(args)
	utils.InitLogging()

	tokens, err := readTokens(*input)
	if err != nil {
		slog.Error("Failed to read input tokens.", "err", err)
		os.Exit(1)
	}

	restored := ltsc.Decompress(tokens, cfg)
	if err := writeTokens(*output, restored); err != nil {
		slog.Error("Failed to write output tokens.", "err", err)
		os.Exit(1)
	}
}

func runDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	input := fs.String("input", "-", "Input file of tokens, or - for stdin.")
	minLength := fs.Int("min_length", 2, "Minimum subsequence length to consider.")
	maxLength := fs.Int("max_length", 8, "Maximum subsequence length to consider.")
	logHandlerAndLevelFlags(fs)
	fs.Parse(args)
	utils.InitLogging()

	tokens, err := readTokens(*input)
	if err != nil {
		slog.Error("Failed to read input tokens.", "err", err)
		os.Exit(1)
	}

	candidates := ltsc.DiscoverPatterns(tokens, *minLength, *maxLength)
	for _, c := range candidates {
		fmt.Printf("len=%d count=%d pattern=%v\n", len(c.Subsequence), len(c.Positions), c.Subsequence)
	}
}

// logHandlerAndLevelFlags registers the shared log_handler_type/log_level
// flags on a subcommand's FlagSet so 'ltsc compress -h' documents them too;
// the flags themselves live in pkg/utils and are read by utils.InitLogging.
func logHandlerAndLevelFlags(fs *flag.FlagSet) {
	if existing := flag.Lookup("log_handler_type"); existing != nil {
		fs.Var(existing.Value, existing.Name, existing.Usage)
	}
	if existing := flag.Lookup("log_level"); existing != nil {
		fs.Var(existing.Value, existing.Name, existing.Usage)
	}
}

// readTokens parses a whitespace/comma separated list of uint32 token values
// from path, or from stdin when path is "-".
func readTokens(path string) (types.TokenSeq, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var tokens types.TokenSeq
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			if field == "" {
				continue
			}
			value, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid token %q: %w", field, err)
			}
			tokens = append(tokens, types.Token(value))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// writeTokens writes a comma-separated token list to path, or stdout when
// path is "-".
func writeTokens(path string, tokens types.TokenSeq) error {
	var w io.Writer
	if path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	buffered := bufio.NewWriter(w)
	for i, tok := range tokens {
		if i > 0 {
			if _, err := buffered.WriteString(","); err != nil {
				return err
			}
		}
		if _, err := buffered.WriteString(strconv.FormatUint(uint64(tok), 10)); err != nil {
			return err
		}
	}
	if _, err := buffered.WriteString("\n"); err != nil {
		return err
	}
	return buffered.Flush()
}
