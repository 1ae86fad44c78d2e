package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hevsound/internal/config"
	"github.com/jmylchreest/hevsound/internal/core"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/output"
	"github.com/jmylchreest/hevsound/internal/store"
)

var historyOpts struct {
	// Filter options
	since       string
	event       string
	source      string
	minPriority string
	filter      string
	limit       int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	template string
	showFile bool

	follow bool
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show sounds that have played",
	Long: `Show the play journal: every sound that actually played, with the
event, the source that reported it and its priority.

Requests that were debounced, dropped by the cooldown or preempted never
played and are not listed.

Filter expressions use field operator value and are joined with commas.
Fields: event, source, file, backend, priority, played.
Operators: = != ~ (contains) ~= (regex) > < >= <=.

Examples:
  # Sounds from the last hour
  hevsound history --since 1h

  # High priority sounds reported by the workspace watcher
  hevsound history --filter "priority>=2,source=workspace"

  # Oldest first, as JSON
  hevsound history --order asc --format json

  # Print sounds as the daemon plays them
  hevsound history --follow`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	// Filter flags
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Show sounds from the last duration (e.g., 30m, 1h, 7d, 1w)")
	historyCmd.Flags().StringVar(&historyOpts.event, "event", "",
		"Filter by event (exact match)")
	historyCmd.Flags().StringVar(&historyOpts.source, "source", "",
		"Filter by source (exact match)")
	historyCmd.Flags().StringVar(&historyOpts.minPriority, "min-priority", "",
		"Minimum priority (low, normal, high, or a number)")
	historyCmd.Flags().StringVar(&historyOpts.filter, "filter", "",
		"Filter expression (e.g., \"event=file_save,priority>0\")")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 0,
		"Maximum number of sounds to show (0=unlimited)")

	// Sort flags
	historyCmd.Flags().StringVar(&historyOpts.sortBy, "sort", "played",
		"Sort by field (played, event, priority)")
	historyCmd.Flags().StringVar(&historyOpts.sortOrder, "order", "desc",
		"Sort order (asc, desc)")

	// Output flags
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Custom Go template for plain output")
	historyCmd.Flags().BoolVar(&historyOpts.showFile, "show-file", false,
		"Show the sound file for each entry")

	historyCmd.Flags().BoolVar(&historyOpts.follow, "follow", false,
		"Keep running and print sounds as hevsoundd plays them")
}

// historyQuery is the parsed form of the history flags.
type historyQuery struct {
	filter core.FilterOptions
	expr   *core.FilterExpr
	sort   core.SortOptions
}

func parseHistoryQuery() (historyQuery, error) {
	var q historyQuery

	if historyOpts.since != "" {
		d, err := core.ParseDuration(historyOpts.since)
		if err != nil {
			return q, err
		}
		q.filter.Since = d
	}

	if historyOpts.event != "" {
		kind, err := model.ParseEventKind(historyOpts.event)
		if err != nil {
			return q, err
		}
		q.filter.Event = kind
	}

	q.filter.Source = historyOpts.source
	q.filter.Limit = historyOpts.limit

	if historyOpts.minPriority != "" {
		p, err := core.ParsePriority(historyOpts.minPriority)
		if err != nil {
			return q, err
		}
		q.filter.MinPriority = &p
	}

	if historyOpts.filter != "" {
		expr, err := core.ParseFilter(historyOpts.filter)
		if err != nil {
			return q, err
		}
		q.expr = expr
	}

	field, err := core.ParseSortField(historyOpts.sortBy)
	if err != nil {
		return q, err
	}
	order, err := core.ParseSortOrder(historyOpts.sortOrder)
	if err != nil {
		return q, err
	}
	q.sort = core.SortOptions{Field: field, Order: order}

	return q, nil
}

// apply filters and sorts records. The limit is applied after sorting so
// it keeps the first records in display order.
func (q historyQuery) apply(records []model.PlayRecord) []model.PlayRecord {
	filter := q.filter
	filter.Limit = 0
	records = core.Filter(records, filter)
	if q.expr != nil {
		records = core.FilterWithExpr(records, q.expr)
	}
	core.Sort(records, q.sort)
	if q.filter.Limit > 0 && len(records) > q.filter.Limit {
		records = records[:q.filter.Limit]
	}
	return records
}

func runHistory(cmd *cobra.Command, args []string) error {
	q, err := parseHistoryQuery()
	if err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = historyOpts.template
	opts.ShowFile = historyOpts.showFile

	if historyOpts.follow {
		opts.ShowIndex = false
		opts.Compact = true
		formatter, err := newFormatter(historyOpts.format, opts)
		if err != nil {
			return err
		}
		return followHistory(formatter, q)
	}

	formatter, err := newFormatter(historyOpts.format, opts)
	if err != nil {
		return err
	}

	records, err := store.ReadJournal(config.JournalPath())
	if err != nil {
		return err
	}

	if len(args) > 0 {
		rec := core.LookupByID(records, args[0])
		if rec == nil {
			return fmt.Errorf("no sound with id %q", args[0])
		}
		return formatter.Records(os.Stdout, []model.PlayRecord{*rec})
	}

	return formatter.Records(os.Stdout, q.apply(records))
}

// followHistory prints journal records as the daemon reports new sounds.
func followHistory(formatter output.Formatter, q historyQuery) error {
	client, ok := connectDaemon()
	if !ok {
		return errors.New("hevsoundd is not running; --follow needs the daemon")
	}
	defer client.Close()

	records, err := store.ReadJournal(config.JournalPath())
	if err != nil {
		return err
	}
	var lastID string
	if n := len(records); n > 0 {
		lastID = records[n-1].ID
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = client.WatchPlayed(ctx, func(kind model.EventKind) {
		records, err := store.ReadJournal(config.JournalPath())
		if err != nil {
			logger.Warn("failed to read journal", "error", err)
			return
		}

		fresh := newerThan(records, lastID)
		if len(fresh) == 0 {
			logger.Debug("played signal without a new journal entry", "event", kind)
			return
		}
		lastID = fresh[len(fresh)-1].ID

		follow := q
		follow.filter.Since = 0
		follow.filter.Limit = 0
		follow.sort = core.SortOptions{Field: core.SortByPlayed, Order: core.SortAsc}
		if out := follow.apply(fresh); len(out) > 0 {
			if err := formatter.Records(os.Stdout, out); err != nil {
				logger.Warn("failed to write record", "error", err)
			}
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newerThan returns the records after the one with id lastID. When lastID
// is not found (the journal was trimmed past it, or it was empty) every
// record is new.
func newerThan(records []model.PlayRecord, lastID string) []model.PlayRecord {
	if lastID == "" {
		return records
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ID == lastID {
			return records[i+1:]
		}
	}
	return records
}
