package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/okian/goalcast/internal/adapters/artifact"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/internal/domain/model"
)

// featureIdentity are the leading columns of the feature table. Durations are
// stored in seconds; the schema columns follow Opponent.
var featureIdentity = []string{
	"Game_ID", "Date", "Player_ID", "Player_Name", "Team",
	"Goals", "Assists", "Shots", "Hits", "Blocked_Shots", "Penalty_Minutes",
	"Time_On_Ice", "PowerPlay_TOI", "ShortHanded_TOI",
	"Did_Score", "Opponent",
}

func defenseHeader(window int) []string {
	return []string{"Game_ID", "Date", "Team", "Goals_Allowed", fmt.Sprintf("GA_Avg_Last_%d", window)}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFeatures encodes t's rows. The same table always produces the same bytes.
func WriteFeatures(w io.Writer, t *features.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(slices.Clone(featureIdentity), t.Schema.Names()...)); err != nil {
		return err
	}
	rec := make([]string, 0, len(featureIdentity)+len(t.Schema.Entries))
	for _, r := range t.Rows {
		did := "0"
		if r.DidScore() {
			did = "1"
		}
		rec = append(rec[:0],
			r.GameID, r.Date.String(), strconv.FormatInt(r.PlayerID, 10), r.PlayerName, r.Team,
			strconv.Itoa(r.Goals), strconv.Itoa(r.Assists), strconv.Itoa(r.Shots), strconv.Itoa(r.Hits),
			strconv.Itoa(r.BlockedShots), strconv.Itoa(r.PenaltyMinutes),
			strconv.Itoa(r.TimeOnIce), strconv.Itoa(r.PowerPlayTOI), strconv.Itoa(r.ShortHandedTOI),
			did, r.Opponent)
		for _, v := range r.Values {
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDefense encodes t's team-defense rows.
func WriteDefense(w io.Writer, t *features.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(defenseHeader(t.Schema.Window)); err != nil {
		return err
	}
	for _, d := range t.Defense {
		if err := cw.Write([]string{
			d.GameID, d.Date.String(), d.Team, strconv.Itoa(d.GoalsAllowed), formatFloat(d.AvgGoalsAllowed),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFeatures decodes a feature table written for schema s. The schema
// columns must match s exactly, in order.
func ReadFeatures(r io.Reader, s features.Schema) ([]model.FeatureRow, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty feature table", ErrTableSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptRecord, err)
	}
	names := s.Names()
	if len(header) < len(featureIdentity) ||
		!slices.Equal(header[:len(featureIdentity)], featureIdentity) {
		return nil, fmt.Errorf("%w: unexpected identity columns", ErrTableSchema)
	}
	if err := features.CheckContract(header[len(featureIdentity):], names); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableSchema, err)
	}
	cols := newColumns(header)

	var rows []model.FeatureRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorruptRecord, line, err)
		}
		day, err := model.ParseDay(cols.str(rec, "Date"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorruptRecord, line, err)
		}
		pid, err := strconv.ParseInt(cols.str(rec, "Player_ID"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: player id: %w", ErrCorruptRecord, line, err)
		}
		row := model.FeatureRow{
			Observation: model.Observation{
				Seq:            int64(len(rows)),
				GameID:         cols.str(rec, "Game_ID"),
				Date:           day,
				PlayerID:       pid,
				PlayerName:     cols.str(rec, "Player_Name"),
				Team:           cols.str(rec, "Team"),
				Goals:          cols.count(rec, "Goals"),
				Assists:        cols.count(rec, "Assists"),
				Shots:          cols.count(rec, "Shots"),
				Hits:           cols.count(rec, "Hits"),
				BlockedShots:   cols.count(rec, "Blocked_Shots"),
				PenaltyMinutes: cols.count(rec, "Penalty_Minutes"),
				TimeOnIce:      cols.count(rec, "Time_On_Ice"),
				PowerPlayTOI:   cols.count(rec, "PowerPlay_TOI"),
				ShortHandedTOI: cols.count(rec, "ShortHanded_TOI"),
			},
			Opponent: cols.str(rec, "Opponent"),
			Values:   make([]float64, len(names)),
		}
		for j, n := range names {
			row.Values[j] = cols.float(rec, n)
		}
		rows = append(rows, row)
	}
}

// ReadDefense decodes a team-defense table written for window n.
func ReadDefense(r io.Reader, n int) ([]model.TeamDefense, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty defense table", ErrTableSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptRecord, err)
	}
	if !slices.Equal(header, defenseHeader(n)) {
		return nil, fmt.Errorf("%w: defense columns %v", ErrTableSchema, header)
	}
	cols := newColumns(header)
	avg := header[len(header)-1]

	var out []model.TeamDefense
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorruptRecord, line, err)
		}
		day, err := model.ParseDay(cols.str(rec, "Date"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorruptRecord, line, err)
		}
		out = append(out, model.TeamDefense{
			GameID:          cols.str(rec, "Game_ID"),
			Date:            day,
			Team:            cols.str(rec, "Team"),
			GoalsAllowed:    cols.count(rec, "Goals_Allowed"),
			AvgGoalsAllowed: cols.float(rec, avg),
			Seq:             int64(len(out)),
		})
	}
}

// TableFiles persists a feature table as two CSV files.
type TableFiles struct {
	FeaturesPath string
	DefensePath  string
}

// Save writes both files atomically.
func (f TableFiles) Save(t *features.Table) error {
	if err := artifact.WriteAtomic(f.FeaturesPath, func(w io.Writer) error { return WriteFeatures(w, t) }); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	if err := artifact.WriteAtomic(f.DefensePath, func(w io.Writer) error { return WriteDefense(w, t) }); err != nil {
		return fmt.Errorf("write defense: %w", err)
	}
	return nil
}

// Load reads both files back as a table for schema s.
func (f TableFiles) Load(_ context.Context, s features.Schema) (*features.Table, error) {
	rows, err := readFile(f.FeaturesPath, func(r io.Reader) ([]model.FeatureRow, error) { return ReadFeatures(r, s) })
	if err != nil {
		return nil, err
	}
	defense, err := readFile(f.DefensePath, func(r io.Reader) ([]model.TeamDefense, error) { return ReadDefense(r, s.Window) })
	if err != nil {
		return nil, err
	}
	return &features.Table{Schema: s, Rows: rows, Defense: defense}, nil
}

// Paths lists the backing files, for change detection.
func (f TableFiles) Paths() []string {
	return []string{f.FeaturesPath, f.DefensePath}
}

func readFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	fh, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	v, err := decode(fh)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}
