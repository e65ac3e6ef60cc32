package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/florenceboettger/ghpr-tools/internal/corpus"
	"github.com/florenceboettger/ghpr-tools/internal/crawl"
	"github.com/florenceboettger/ghpr-tools/internal/github"
	"github.com/florenceboettger/ghpr-tools/internal/logger"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [flags] OWNER/REPO...",
	Short: "Crawl pull requests and issues into a corpus",
	Long: `Crawl the pull requests and issues of one or more GitHub repositories
created inside the date window, together with each pull request's diff
and the issues its description closes.

Repositories are crawled sequentially into one directory per
repository under the destination directory. Crawling the same window
again overwrites the stored records in place, so an interrupted run
can simply be repeated. The first interrupt finishes the page being
crawled and stops; a second interrupt aborts immediately.

A token raises the API allowance from 60 to 5000 requests per hour.
It is read from --token, the github.token config key, the
GITHUB_OAUTH_TOKEN and GITHUB_TOKEN environment variables, or an
interactive prompt, in that order. An empty token crawls anonymously.

Examples:
  # Everything created in 2024
  ghpr crawl -e 2024-01-01 -E 2024-12-31 golang/go

  # Resume the pulls stream from page 120
  ghpr crawl -e 2024-01-01 -E 2024-12-31 -p 120 golang/go

  # Several repositories, keeping the raw list pages as well
  ghpr crawl -a microsoft/vscode golang/go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCrawl,
}

// Flags for crawl.
var (
	crawlToken       string
	crawlDestDir     string
	crawlPerPage     int
	crawlMaxTries    int
	crawlRetryWait   int
	crawlMaxIssues   int
	crawlStartDate   string
	crawlEndDate     string
	crawlStartPulls  int
	crawlEndPulls    int
	crawlStartIssues int
	crawlEndIssues   int
	crawlSavePages   bool
	crawlRate        float64
)

func init() {
	crawlCmd.Flags().StringVarP(
		&crawlToken, "token", "t", "", "GitHub API token (empty for anonymous access)")
	crawlCmd.Flags().StringVarP(
		&crawlDestDir, "dest-dir", "d", "repos", "Directory the corpus is written to")
	crawlCmd.Flags().IntVar(
		&crawlPerPage, "per-page", 100, "List page size, between 1 and 100")
	crawlCmd.Flags().IntVarP(
		&crawlMaxTries, "max-request-tries", "m", 100, "Failed tries after which a repository is abandoned")
	crawlCmd.Flags().IntVarP(
		&crawlRetryWait, "retry-wait", "r", 10, "Seconds to wait between failed tries")
	crawlCmd.Flags().IntVarP(
		&crawlMaxIssues, "max-issues", "n", -1, "Stop a repository after saving this many issues per pass (-1 for no cap)")
	crawlCmd.Flags().StringVarP(
		&crawlStartDate, "start-date", "e", "2000-01-01", "Only keep items created on or after this date (YYYY-MM-DD)")
	crawlCmd.Flags().StringVarP(
		&crawlEndDate, "end-date", "E", "2050-01-01", "Only keep items created on or before this date (YYYY-MM-DD)")
	crawlCmd.Flags().IntVarP(
		&crawlStartPulls, "start-page-pulls", "p", -1, "First pulls page (-1 to search for it)")
	crawlCmd.Flags().IntVarP(
		&crawlEndPulls, "end-page-pulls", "P", -1, "Last pulls page (-1 to search for it)")
	crawlCmd.Flags().IntVarP(
		&crawlStartIssues, "start-page-issues", "i", -1, "First issues page (-1 to search for it)")
	crawlCmd.Flags().IntVarP(
		&crawlEndIssues, "end-page-issues", "I", -1, "Last issues page (-1 to search for it)")
	crawlCmd.Flags().BoolVarP(
		&crawlSavePages, "save-pull-pages", "a", false, "Also save the raw pull list pages")
	crawlCmd.Flags().Float64Var(
		&crawlRate, "rate", 1.2, "Proactive request rate limit in requests per second (0 to disable)")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if _, err := configStore(); err != nil {
		return err
	}

	destDir := stringSetting(cmd, "dest-dir", "crawl.dest_dir", crawlDestDir)
	perPage := intSetting(cmd, "per-page", "crawl.per_page", crawlPerPage)
	maxTries := intSetting(cmd, "max-request-tries", "crawl.max_request_tries", crawlMaxTries)
	retryWait := intSetting(cmd, "retry-wait", "crawl.retry_wait", crawlRetryWait)
	maxIssues := intSetting(cmd, "max-issues", "crawl.max_issues", crawlMaxIssues)
	startDate := stringSetting(cmd, "start-date", "crawl.start_date", crawlStartDate)
	endDate := stringSetting(cmd, "end-date", "crawl.end_date", crawlEndDate)
	savePages := boolSetting(cmd, "save-pull-pages", "crawl.save_pull_pages", crawlSavePages)
	rate := floatSetting(cmd, "rate", "crawl.rate", crawlRate)

	if perPage < 1 || perPage > 100 {
		return fmt.Errorf("per-page must be between 1 and 100, got %d", perPage)
	}
	if maxTries < 1 {
		return fmt.Errorf("max-request-tries must be at least 1, got %d", maxTries)
	}
	if retryWait < 0 {
		return fmt.Errorf("retry-wait must not be negative, got %d", retryWait)
	}

	window, err := crawl.ParseWindow(startDate, endDate)
	if err != nil {
		return err
	}
	repos, err := parseRepos(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	token := resolveToken(cmd)
	client := github.NewClient(ctx, github.Options{
		Token:             token,
		MaxTries:          maxTries,
		RetryWait:         time.Duration(retryWait) * time.Second,
		RequestsPerSecond: rate,
	})
	if token == "" {
		pterm.Warning.Println("No token configured, crawling anonymously (60 requests per hour).")
	} else if err := client.ValidateCredentials(ctx); err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}

	stop := crawl.NewStopper()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if stop.Request() {
				pterm.Warning.Println("Interrupt received, finishing the current page. Interrupt again to abort.")
				logger.Info("crawl: stop requested by interrupt")
			} else {
				pterm.Error.Println("Aborted.")
				os.Exit(2)
			}
		}
	}()

	store := corpus.NewStore(destDir)
	template := crawl.Options{
		Window:          window,
		PerPage:         perPage,
		StartPagePulls:  crawlStartPulls,
		EndPagePulls:    crawlEndPulls,
		StartPageIssues: crawlStartIssues,
		EndPageIssues:   crawlEndIssues,
		MaxIssues:       maxIssues,
		SavePullPages:   savePages,
	}

	failed := 0
	for i, ref := range repos {
		if stop.Requested() {
			break
		}
		pterm.Info.Printf("Crawling %s (%d/%d).\n", ref, i+1, len(repos))
		if err := crawlRepo(ctx, client, store, stop, ref, template); err != nil {
			failed++
			pterm.Error.Printf("Crawl of %s failed: %v\n", ref, err)
			logger.Error("crawl: %s: %v", ref, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed", failed, len(repos))
	}
	return nil
}

// crawlRepo crawls one repository: a preflight fetch of the repository
// record, then the two-pass crawl.
func crawlRepo(ctx context.Context, client *github.Client, store *corpus.Store,
	stop *crawl.Stopper, ref repoRef, template crawl.Options) error {
	info, err := client.Preflight(ctx, ref.owner, ref.repo)
	if err != nil {
		return err
	}
	logger.Info("crawl: %s created %s", info.FullName, info.CreatedAt.Format("2006-01-02"))

	opts := template
	opts.Owner = ref.owner
	opts.Repo = ref.repo
	opts.RepoCreatedAt = info.CreatedAt
	engine := crawl.NewEngine(client.Repo(ref.owner, ref.repo, opts.PerPage), store, stop, opts)
	return engine.Run(ctx)
}

// repoRef names one repository argument.
type repoRef struct {
	owner string
	repo  string
}

func (r repoRef) String() string {
	return r.owner + "/" + r.repo
}

func parseRepos(args []string) ([]repoRef, error) {
	refs := make([]repoRef, 0, len(args))
	for _, arg := range args {
		owner, repo, ok := strings.Cut(arg, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			return nil, fmt.Errorf("invalid repository %q, expected OWNER/REPO", arg)
		}
		refs = append(refs, repoRef{owner: owner, repo: repo})
	}
	return refs, nil
}

// resolveToken returns the API token from the flag, the config file,
// the environment or an interactive prompt, in that order. An empty
// result means anonymous access.
func resolveToken(cmd *cobra.Command) string {
	if crawlToken != "" {
		return crawlToken
	}
	if cfg != nil {
		if token := cfg.GetString("github.token"); token != "" {
			return token
		}
	}
	if token := os.Getenv("GITHUB_OAUTH_TOKEN"); token != "" {
		return token
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Print("GitHub token (empty for anonymous access): ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return ""
}
