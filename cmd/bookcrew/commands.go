package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bookcrew/internal/catalog"
	"bookcrew/internal/config"
	"bookcrew/internal/platform/googlebooks"
)

type options struct {
	baseURL   string
	apiKey    string
	railsFile string
	asJSON    bool
	verbose   bool
}

// serviceFactory builds the catalog service once flags are parsed.
type serviceFactory func(opts *options) (*catalog.Service, error)

func defaultFactory(opts *options) (*catalog.Service, error) {
	rails, err := catalog.LoadRails(opts.railsFile)
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := googlebooks.NewClient(googlebooks.Config{
		BaseURL:    opts.baseURL,
		APIKey:     opts.apiKey,
		MaxRetries: 2,
	})
	cfg := catalog.DefaultConfig()
	cfg.Rails = rails
	return catalog.NewService(client, cfg, logger), nil
}

func newRootCmd(factory serviceFactory) *cobra.Command {
	if factory == nil {
		factory = defaultFactory
	}
	config.LoadEnvFiles()
	opts := &options{}

	root := &cobra.Command{
		Use:           "bookcrew",
		Short:         "Query the BookCrew catalog",
		Long:          `Search books, list featured and upcoming releases, and browse explore rails.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", os.Getenv("GOOGLE_BOOKS_BASE_URL"), "Catalog provider base URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("GOOGLE_BOOKS_API_KEY"), "Catalog provider API key")
	root.PersistentFlags().StringVar(&opts.railsFile, "rails", os.Getenv("CATALOG_RAILS_FILE"), "YAML file with explore rails")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of a table")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log provider calls")

	withService := func(run func(cmd *cobra.Command, svc *catalog.Service, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, err := factory(opts)
			if err != nil {
				return err
			}
			return run(cmd, svc, args)
		}
	}

	var (
		maxResults int
		search     catalog.SearchOptions
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search books by title or author",
		Args:  cobra.MinimumNArgs(1),
		RunE: withService(func(cmd *cobra.Command, svc *catalog.Service, args []string) error {
			books := svc.Search(cmd.Context(), strings.Join(args, " "), maxResults, search)
			return printBooks(cmd.OutOrStdout(), opts.asJSON, books)
		}),
	}
	searchCmd.Flags().IntVarP(&maxResults, "max", "n", catalog.DefaultSearchResults, "Maximum results")
	searchCmd.Flags().StringVar(&search.Lang, "lang", "en", "Language restriction")
	searchCmd.Flags().StringVar(&search.Sort, "sort", catalog.SortRelevance, "relevance or newest")
	searchCmd.Flags().StringVar(&search.Format, "format", catalog.FormatBooks, "all, books or ebooks")
	searchCmd.Flags().StringVar(&search.Availability, "availability", catalog.AvailabilityAll, "all, free, preview or paid")

	featuredCmd := &cobra.Command{
		Use:   "featured",
		Short: "Newest displayable books for the home page",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *catalog.Service, _ []string) error {
			return printBooks(cmd.OutOrStdout(), opts.asJSON, svc.Featured(cmd.Context()))
		}),
	}

	var upcomingLimit int
	upcomingCmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Books with a release date in the future",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *catalog.Service, _ []string) error {
			return printBooks(cmd.OutOrStdout(), opts.asJSON, svc.UpcomingReleases(cmd.Context(), upcomingLimit))
		}),
	}
	upcomingCmd.Flags().IntVarP(&upcomingLimit, "limit", "n", catalog.DefaultUpcomingLimit, "Maximum results")

	railsCmd := &cobra.Command{
		Use:   "rails",
		Short: "List explore rails with their books",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *catalog.Service, _ []string) error {
			rails := svc.ExploreRails(cmd.Context())
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), rails)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tBOOKS")
			for _, r := range rails {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", r.ID, r.Title, len(r.Books))
			}
			return tw.Flush()
		}),
	}

	var railLimit int
	railCmd := &cobra.Command{
		Use:   "rail <id>",
		Short: "Show one explore rail",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(cmd *cobra.Command, svc *catalog.Service, args []string) error {
			rail, ok := svc.ExploreRailByID(cmd.Context(), args[0], railLimit)
			if !ok {
				return fmt.Errorf("rail %q not found", args[0])
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), rail)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d available)\n", rail.Title, rail.TotalAvailable)
			return printBooks(cmd.OutOrStdout(), false, rail.Books)
		}),
	}
	railCmd.Flags().IntVarP(&railLimit, "limit", "n", catalog.DefaultRailPageLimit, "Maximum books")

	bookCmd := &cobra.Command{
		Use:   "book <id>",
		Short: "Show one book by catalog ID",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(cmd *cobra.Command, svc *catalog.Service, args []string) error {
			book, ok := svc.BookByID(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("book %q not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), book)
		}),
	}

	root.AddCommand(searchCmd, featuredCmd, upcomingCmd, railsCmd, railCmd, bookCmd)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBooks(w io.Writer, asJSON bool, books []catalog.BookSummary) error {
	if asJSON {
		return writeJSON(w, books)
	}
	if len(books) == 0 {
		_, err := fmt.Fprintln(w, "No books found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tPUBLISHED")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Authors, b.PublishedDate)
	}
	return tw.Flush()
}
