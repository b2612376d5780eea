package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"askrepo/internal/cache"
	"askrepo/internal/collab"
	"askrepo/internal/pipeline"
	"askrepo/internal/selector"
	"askrepo/internal/tokens"
)

var (
	askOwnerFlag string
	askRepoFlag  string
	askRootFlag  string
	askWaitFlag  bool
	askJSONFlag  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Answer a question about a repository",
	Long: `Selects the files relevant to the query, assembles a token-bounded
context from their contents, and streams the answer. With --wait the event
stream is collected into a single result instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askOwnerFlag, "owner", "local", "Repository owner")
	askCmd.Flags().StringVar(&askRepoFlag, "repo", "repo", "Repository name")
	askCmd.Flags().StringVar(&askRootFlag, "root", ".", "Local checkout to read files from")
	askCmd.Flags().BoolVar(&askWaitFlag, "wait", false, "Collect the stream into one result")
	askCmd.Flags().BoolVar(&askJSONFlag, "json", false, "Emit raw stream events as JSON lines")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	local := &collab.LocalTreeFetcher{Root: askRootFlag}
	candidates, err := local.ListTree()
	if err != nil {
		return fmt.Errorf("list repository tree: %w", err)
	}

	scope := cache.Scope{Owner: askOwnerFlag, Repo: askRepoFlag}
	sel := selector.New(store, &offlineSelector{maxFiles: cfg.Selector.MaxSelectedFiles}, selector.Caps{
		MaxMentionFiles:    cfg.Selector.MaxMentionFiles,
		MaxSelectedFiles:   cfg.Selector.MaxSelectedFiles,
		MaxCandidatesForAI: cfg.Selector.MaxCandidatesForAI,
		PrefilterThreshold: cfg.Selector.PrefilterThreshold,
	}, logger)
	fetcher := collab.NewCachedContentFetcher(local, store, logger)
	p := pipeline.New(store, sel, fetcher, &offlineStreamer{}, tokens.NewAssembler(cfg.Budget.MaxContextTokens), logger)

	ctx := cmd.Context()
	ch := p.Run(ctx, pipeline.Request{
		Query:      args[0],
		Scope:      scope,
		Candidates: candidates,
	})

	if askWaitFlag {
		res, err := pipeline.Collect(ch)
		if err != nil {
			return err
		}
		fmt.Println(res.Answer)
		if len(res.RelevantFiles) > 0 {
			fmt.Fprintln(os.Stderr, "Files:", res.RelevantFiles)
		}
		return nil
	}

	for update := range ch {
		if askJSONFlag {
			line, err := json.Marshal(update)
			if err != nil {
				continue
			}
			fmt.Println(string(line))
			continue
		}
		switch update.Type {
		case pipeline.UpdateStatus:
			fmt.Fprintf(os.Stderr, "… %s\n", update.Message)
		case pipeline.UpdateFiles:
			fmt.Fprintf(os.Stderr, "Files: %v\n", update.Files)
		case pipeline.UpdateContent:
			fmt.Print(update.Text)
		case pipeline.UpdateComplete:
			fmt.Println()
		case pipeline.UpdateError:
			return fmt.Errorf("%s", update.Message)
		}
	}
	return nil
}
