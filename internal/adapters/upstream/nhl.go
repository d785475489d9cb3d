// Package upstream is the client for the public NHL web API: the daily
// schedule and per-game box scores.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
	"github.com/okian/goalcast/pkg/metrics"
)

const (
	defaultBaseURL    = "https://api-web.nhle.com/v1"
	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 5
	defaultBackoff    = 2 * time.Second
	defaultDelay      = 250 * time.Millisecond
	maxBody           = 16 << 20
)

// Client fetches schedules and box scores. Transient failures (429, 5xx,
// transport errors) are retried with exponential backoff; anything else
// fails explicitly.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	delay      time.Duration
	log        logger.Logger
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		http:       &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		delay:      defaultDelay,
		log:        logger.Get().Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// Schedule lists the games played on day. Games whose team names cannot be
// built are skipped with a warning.
func (c *Client) Schedule(ctx context.Context, day model.Day) ([]model.Game, error) {
	var resp scheduleResponse
	if err := c.getJSON(ctx, "schedule", "/schedule/"+day.String(), &resp); err != nil {
		return nil, err
	}

	games := []model.Game{}
	for _, wk := range resp.GameWeek {
		if wk.Date != day.String() {
			continue
		}
		for _, g := range wk.Games {
			id := gameID(g.ID)
			home, away := g.HomeTeam.FullName(), g.AwayTeam.FullName()
			if id == "" || home == "" || away == "" {
				c.log.Warn(ctx, "skipping game with missing id or team names",
					logger.String("game_id", g.ID.String()),
					logger.String("date", day.String()))
				metrics.RecordGameSkipped("missing_team_names")
				continue
			}
			games = append(games, model.Game{GameID: id, Date: day, HomeTeam: home, AwayTeam: away})
		}
	}
	return games, nil
}

// Boxscore returns one observation per skater (forwards and defense) who
// played in g. Team names come from g.
func (c *Client) Boxscore(ctx context.Context, g model.Game) ([]model.Observation, error) {
	box, err := c.boxscore(ctx, g.GameID)
	if err != nil {
		return nil, err
	}
	var out []model.Observation
	if box.PlayerByGameStats == nil {
		return out, nil
	}
	sides := []struct {
		team  string
		stats *teamSkaters
	}{
		{g.AwayTeam, box.PlayerByGameStats.AwayTeam},
		{g.HomeTeam, box.PlayerByGameStats.HomeTeam},
	}
	for _, side := range sides {
		for _, p := range side.stats.all() {
			out = append(out, model.Observation{
				GameID:         g.GameID,
				Date:           g.Date,
				PlayerID:       p.PlayerID,
				PlayerName:     p.name(),
				Team:           side.team,
				Goals:          p.Goals,
				Assists:        p.Assists,
				Shots:          p.shots(),
				Hits:           p.Hits,
				BlockedShots:   p.BlockedShots,
				PenaltyMinutes: p.PIM,
				TimeOnIce:      model.ParseTOI(p.TOI),
				PowerPlayTOI:   model.ParseTOI(p.PowerPlayTOI),
				ShortHandedTOI: model.ParseTOI(p.ShortHandedTOI),
			})
		}
	}
	return out, nil
}

// Roster returns the dressed skaters of g per team. Before lineups are
// published the box score has no skaters and ErrRosterUnavailable is returned.
func (c *Client) Roster(ctx context.Context, g model.Game) (map[string][]int64, error) {
	box, err := c.boxscore(ctx, g.GameID)
	if err != nil {
		return nil, err
	}
	if box.PlayerByGameStats == nil {
		return nil, fmt.Errorf("%w: game %s", ErrRosterUnavailable, g.GameID)
	}
	out := make(map[string][]int64, 2)
	for team, stats := range map[string]*teamSkaters{
		g.AwayTeam: box.PlayerByGameStats.AwayTeam,
		g.HomeTeam: box.PlayerByGameStats.HomeTeam,
	} {
		for _, p := range stats.all() {
			out[team] = append(out[team], p.PlayerID)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: game %s", ErrRosterUnavailable, g.GameID)
	}
	return out, nil
}

// Slate resolves day's games and whatever rosters are already published.
// A game without a roster leaves its teams unfiltered.
func (c *Client) Slate(ctx context.Context, day model.Day) (model.Slate, error) {
	games, err := c.Schedule(ctx, day)
	if err != nil {
		return model.Slate{}, err
	}
	s := model.Slate{Date: day, Games: games, Rosters: map[string][]int64{}}
	for _, g := range games {
		roster, err := c.Roster(ctx, g)
		if err != nil {
			c.log.Debug(ctx, "roster not available",
				logger.String("game_id", g.GameID),
				logger.Error(err))
			continue
		}
		for team, ids := range roster {
			s.Rosters[team] = ids
		}
	}
	return s, nil
}

func (c *Client) boxscore(ctx context.Context, id string) (*boxscoreResponse, error) {
	if err := sleep(ctx, c.delay); err != nil {
		return nil, err
	}
	var box boxscoreResponse
	if err := c.getJSON(ctx, "boxscore", "/gamecenter/"+id+"/boxscore", &box); err != nil {
		return nil, err
	}
	return &box, nil
}

// getJSON GETs path and decodes the body into dst, retrying transient failures.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, dst any) error {
	url := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2*base, 4*base, ...
			wait := c.backoff << uint(attempt-1)
			metrics.RecordUpstreamRetry()
			c.log.Warn(ctx, "retrying upstream request",
				logger.String("url", url),
				logger.Int("attempt", attempt),
				logger.String("wait", wait.String()),
				logger.Error(lastErr))
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		retry, err := c.do(ctx, url, dst)
		if err == nil {
			metrics.RecordUpstreamRequest(endpoint, "ok")
			return nil
		}
		lastErr = err
		if !retry {
			metrics.RecordUpstreamRequest(endpoint, "error")
			return err
		}
	}
	metrics.RecordUpstreamRequest(endpoint, "exhausted")
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, url, c.maxRetries+1, lastErr)
}

// do performs one request. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, url string, dst any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		err := fmt.Errorf("%w: %s: %d", ErrStatus, url, resp.StatusCode)
		return retryable(resp.StatusCode), err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(dst); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrDecode, url, err)
	}
	return false, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
