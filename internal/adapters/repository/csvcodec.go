package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/goalcast/internal/domain/model"
)

// observationHeader is the raw record layout. Durations are MM:SS.
var observationHeader = []string{
	"Game_ID", "Date", "Player_ID", "Player_Name", "Team",
	"Goals", "Assists", "Shots", "Hits", "Blocked_Shots", "Penalty_Minutes",
	"Time_On_Ice", "PowerPlay_TOI", "ShortHanded_TOI",
}

func observationRecord(o model.Observation) []string {
	return []string{
		o.GameID,
		o.Date.String(),
		strconv.FormatInt(o.PlayerID, 10),
		o.PlayerName,
		o.Team,
		strconv.Itoa(o.Goals),
		strconv.Itoa(o.Assists),
		strconv.Itoa(o.Shots),
		strconv.Itoa(o.Hits),
		strconv.Itoa(o.BlockedShots),
		strconv.Itoa(o.PenaltyMinutes),
		model.FormatTOI(o.TimeOnIce),
		model.FormatTOI(o.PowerPlayTOI),
		model.FormatTOI(o.ShortHandedTOI),
	}
}

// columns maps header names to positions.
type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		c[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return c
}

func (c columns) require(names ...string) error {
	for _, n := range names {
		if _, ok := c[n]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrCorruptRecord, n)
		}
	}
	return nil
}

func (c columns) str(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// count reads a non-negative counting stat; anything else is 0.
func (c columns) count(rec []string, name string) int {
	v := c.str(rec, name)
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
		return int(f)
	}
	return 0
}

func (c columns) float(rec []string, name string) float64 {
	f, err := strconv.ParseFloat(c.str(rec, name), 64)
	if err != nil {
		return 0
	}
	return f
}

// readObservations decodes a raw record CSV. Seq is the row position.
// Identity columns must parse; stat columns coerce to 0.
func readObservations(r io.Reader) ([]model.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptRecord, err)
	}
	cols := newColumns(header)
	if err := cols.require("Game_ID", "Date", "Player_ID", "Team"); err != nil {
		return nil, err
	}

	var out []model.Observation
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
		pid, err := strconv.ParseInt(cols.str(rec, "Player_ID"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: player id: %w", ErrCorruptRecord, line, err)
		}
		out = append(out, model.Observation{
			Seq:            int64(len(out)),
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
			TimeOnIce:      model.ParseTOI(cols.str(rec, "Time_On_Ice")),
			PowerPlayTOI:   model.ParseTOI(cols.str(rec, "PowerPlay_TOI")),
			ShortHandedTOI: model.ParseTOI(cols.str(rec, "ShortHanded_TOI")),
		})
	}
}

func writeObservations(w io.Writer, obs []model.Observation, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(observationHeader); err != nil {
			return err
		}
	}
	for _, o := range obs {
		if err := cw.Write(observationRecord(o)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
