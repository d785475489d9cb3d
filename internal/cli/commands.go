package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	service "github.com/okian/goalcast/internal/app"
	"github.com/okian/goalcast/internal/domain/classifier"
	"github.com/okian/goalcast/internal/domain/inference"
	"github.com/okian/goalcast/internal/domain/model"
)

// Pipeline is the subset of the service the batch commands drive.
type Pipeline interface {
	Ingest(ctx context.Context, day model.Day) (*service.IngestReport, error)
	Backfill(ctx context.Context, from, to model.Day) ([]*service.IngestReport, error)
	Dedupe(ctx context.Context) (int, error)
	BuildFeatures(ctx context.Context) (*service.BuildReport, error)
	Train(ctx context.Context) (classifier.Report, error)
	Predict(ctx context.Context, day model.Day, ids []int64) (*inference.Result, error)
	Tonight() model.Day
}

// Runner executes one pipeline command per call.
type Runner struct {
	p   Pipeline
	out io.Writer
	now func() time.Time
}

// NewRunner creates a Runner writing human-readable output to out.
func NewRunner(p Pipeline, out io.Writer) *Runner {
	return &Runner{p: p, out: out, now: time.Now}
}

// WithClock overrides the clock used for the default ingest day.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run dispatches args[0] with the remaining arguments as its flags.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "ingest":
		return r.ingest(ctx, rest)
	case "backfill":
		return r.backfill(ctx, rest)
	case "dedupe":
		removed, err := r.p.Dedupe(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "removed %d duplicate records\n", removed)
		return nil
	case "build":
		rep, err := r.p.BuildFeatures(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "built %d feature rows from %d records (%d team games, %d malformed games excluded)\n",
			rep.Rows, rep.Observations, rep.Teams, rep.Malformed)
		return nil
	case "train":
		rep, err := r.p.Train(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "trained on %d rows (%d positive), held out %d, AUC %.4f\n",
			rep.TrainRows, rep.Positives, rep.TestRows, rep.AUC)
		return nil
	case "predict":
		return r.predict(ctx, rest)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

func (r *Runner) ingest(ctx context.Context, args []string) error {
	fs := newFlagSet("ingest")
	date := fs.String("date", "", "day to ingest, YYYY-MM-DD (default yesterday, UTC)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	day := model.DayOf(r.now().UTC()).AddDays(-1)
	if *date != "" {
		d, err := model.ParseDay(*date)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
		day = d
	}
	rep, err := r.p.Ingest(ctx, day)
	if err != nil {
		return err
	}
	r.printIngest(rep)
	return nil
}

func (r *Runner) backfill(ctx context.Context, args []string) error {
	fs := newFlagSet("backfill")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD (inclusive)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	f, err := model.ParseDay(*from)
	if err != nil {
		return fmt.Errorf("%w: -from: %w", ErrUsage, err)
	}
	t, err := model.ParseDay(*to)
	if err != nil {
		return fmt.Errorf("%w: -to: %w", ErrUsage, err)
	}
	reps, err := r.p.Backfill(ctx, f, t)
	for _, rep := range reps {
		r.printIngest(rep)
	}
	return err
}

func (r *Runner) printIngest(rep *service.IngestReport) {
	fmt.Fprintf(r.out, "%s: %d games, %d records, %d already ingested, %d duplicates removed\n",
		rep.Date, rep.Games, rep.Observations, rep.Skipped, rep.Duplicates)
	for _, f := range rep.Failed {
		fmt.Fprintf(r.out, "  warning: game %s skipped: %s\n", f.GameID, f.Error)
	}
}

func (r *Runner) predict(ctx context.Context, args []string) error {
	fs := newFlagSet("predict")
	date := fs.String("date", "", "game day, YYYY-MM-DD (default tonight)")
	players := fs.String("players", "", "comma-separated player ids (default every player with history)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	day := r.p.Tonight()
	if *date != "" {
		d, err := model.ParseDay(*date)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
		day = d
	}
	ids, err := parseIDs(*players)
	if err != nil {
		return err
	}

	res, err := r.p.Predict(ctx, day, ids)
	if err != nil {
		return err
	}
	if len(res.Predictions) == 0 && len(res.Skipped) == 0 {
		fmt.Fprintf(r.out, "no games scheduled on %s\n", day)
		return nil
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tTEAM\tOPPONENT\tPROBABILITY")
	for i, p := range res.Predictions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f%%\n", i+1, p.PlayerName, p.Team, p.Opponent, 100*p.Probability)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, s := range res.Skipped {
		name := s.PlayerName
		if name == "" {
			name = strconv.FormatInt(s.PlayerID, 10)
		}
		fmt.Fprintf(r.out, "warning: %s skipped: %s\n", name, s.Reason)
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: player id %q", ErrUsage, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// IsUsage reports whether err should be answered with the help text.
func IsUsage(err error) bool {
	return errors.Is(err, ErrUsage) || errors.Is(err, ErrUnknownCommand)
}
