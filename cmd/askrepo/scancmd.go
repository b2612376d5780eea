package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"askrepo/internal/cache"
	"askrepo/internal/collab"
	"askrepo/internal/scan"
)

var (
	scanOwnerFlag   string
	scanRepoFlag    string
	scanRootFlag    string
	scanDepthFlag   string
	scanAIFlag      bool
	scanIncludeFlag []string
	scanExcludeFlag []string
	scanJSONFlag    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a hybrid security scan over a repository",
	Long: `Filters the repository to scannable source files, runs the pattern
rules over their contents, and optionally re-scans the riskiest files with
an AI scanner. Identical scan configurations are served from cache.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanOwnerFlag, "owner", "local", "Repository owner")
	scanCmd.Flags().StringVar(&scanRepoFlag, "repo", "repo", "Repository name")
	scanCmd.Flags().StringVar(&scanRootFlag, "root", ".", "Local checkout to read files from")
	scanCmd.Flags().StringVar(&scanDepthFlag, "depth", "quick", "Scan depth: quick or deep")
	scanCmd.Flags().BoolVar(&scanAIFlag, "ai", false, "Enable the AI re-scan stage")
	scanCmd.Flags().StringSliceVar(&scanIncludeFlag, "include", nil, "Glob patterns of paths to include")
	scanCmd.Flags().StringSliceVar(&scanExcludeFlag, "exclude", nil, "Glob patterns of paths to exclude")
	scanCmd.Flags().BoolVar(&scanJSONFlag, "json", false, "Emit the result as JSON")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store := cache.NewStore(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	defer store.Close()

	local := &collab.LocalTreeFetcher{Root: scanRootFlag}
	candidates, err := local.ListTree()
	if err != nil {
		return fmt.Errorf("list repository tree: %w", err)
	}

	opts := scan.Options{
		Depth:     scan.Depth(scanDepthFlag),
		AIEnabled: scanAIFlag,
		Include:   scanIncludeFlag,
		Exclude:   scanExcludeFlag,
	}
	policyPath := cfg.Scan.PolicyPath
	if policyPath == "" {
		policyPath = "askrepo-scan.yaml"
	}
	policy, err := scan.LoadPolicy(policyPath)
	if err != nil {
		logger.Warn("scan policy unreadable, ignoring", "error", err)
	} else {
		opts = policy.Apply(opts)
	}

	fetcher := collab.NewCachedContentFetcher(local, store, logger)
	orchestrator := scan.New(store, fetcher, &builtinPatternScanner{}, nil, scan.Caps{
		QuickMaxFiles:   cfg.Scan.QuickMaxFiles,
		QuickMaxAIFiles: cfg.Scan.QuickMaxAIFiles,
		DeepMaxFiles:    cfg.Scan.DeepMaxFiles,
		DeepMaxAIFiles:  cfg.Scan.DeepMaxAIFiles,
	}, logger)

	scope := cache.Scope{Owner: scanOwnerFlag, Repo: scanRepoFlag}
	result, err := orchestrator.Scan(cmd.Context(), scope, candidates, opts)
	if err != nil {
		return err
	}

	if scanJSONFlag {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Scanned %d files, %d findings\n", result.Stages.FilesFetched, len(result.Findings))
	for _, f := range result.Findings {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Printf("  [%s] %s — %s\n", f.Severity, loc, f.Title)
		if f.Snippet != "" {
			fmt.Fprintln(os.Stderr, f.Snippet)
		}
	}
	return nil
}

// builtinPatternScanner is a small deterministic rule set so the CLI can
// scan without an external rules engine wired in.
type builtinPatternScanner struct{}

type builtinRule struct {
	title    string
	severity collab.Severity
	re       *regexp.Regexp
}

var builtinRules = []builtinRule{
	{"Hardcoded secret", collab.SeverityCritical, regexp.MustCompile(`(?i)(api[_-]?key|secret|password)\s*[:=]\s*["'][^"']{8,}["']`)},
	{"Private key material", collab.SeverityCritical, regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
	{"SQL built from string concatenation", collab.SeverityHigh, regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE)[^"\n]*"\s*\+`)},
	{"Shell command from variable", collab.SeverityMedium, regexp.MustCompile(`(?i)exec\.Command\([^)"]*\b(input|arg|param|query)`)},
}

func (s *builtinPatternScanner) Scan(ctx context.Context, files []collab.FileContent) ([]collab.Finding, error) {
	var findings []collab.Finding
	for _, fc := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, rule := range builtinRules {
			for lineNo, line := range splitLines(fc.Content) {
				if rule.re.MatchString(line) {
					findings = append(findings, collab.Finding{
						File:       fc.Path,
						Line:       lineNo + 1,
						Title:      rule.title,
						Severity:   rule.severity,
						Confidence: collab.ConfidenceHigh,
						Source:     "pattern",
					})
				}
			}
		}
	}
	return findings, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
