package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/okian/goalcast/internal/adapters/upstream"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	logger.Init()
}

const scheduleJSON = `{
  "gameWeek": [
    {"date": "2024-01-09", "games": [{"id": 2023020600,
      "homeTeam": {"placeName": {"default": "Boston"}, "commonName": {"default": "Bruins"}},
      "awayTeam": {"placeName": {"default": "Buffalo"}, "commonName": {"default": "Sabres"}}}]},
    {"date": "2024-01-10", "games": [
      {"id": 2023020610,
       "homeTeam": {"placeName": {"default": "Vancouver"}, "commonName": {"default": "Canucks"}},
       "awayTeam": {"placeName": {"default": "Calgary"}, "commonName": {"default": "Flames"}}},
      {"id": 2023020611,
       "homeTeam": {"commonName": {"default": "Team Atlantic"}},
       "awayTeam": {"commonName": {"default": "Team Metropolitan"}}},
      {"id": 2023020612,
       "homeTeam": {"placeName": {"default": "Nowhere"}},
       "awayTeam": {"placeName": {"default": "Calgary"}, "commonName": {"default": "Flames"}}}
    ]}
  ]
}`

const boxscoreJSON = `{
  "id": 2023020610,
  "playerByGameStats": {
    "awayTeam": {
      "forwards": [{"playerId": 8474150, "name": {"default": "N. Kadri"}, "goals": 1, "assists": 0, "sog": 4,
                    "hits": 2, "blockedShots": 0, "pim": 2, "toi": "18:02", "powerPlayToi": "02:10", "shorthandedToi": "00:00"}],
      "defense": [{"playerId": 8480012, "name": {"default": "R. Andersson"}, "goals": 0, "assists": 1, "shots": 2,
                   "hits": 1, "blockedShots": 3, "pim": 0, "toi": "23:45"}],
      "goalies": [{"playerId": 8479292}]
    },
    "homeTeam": {
      "forwards": [{"playerId": 8480800, "name": {"default": "E. Pettersson"}, "goals": 2, "assists": 1, "shots": 5,
                    "toi": "20:00", "powerPlayToi": "bad"}],
      "defense": []
    }
  }
}`

func newClient(url string) *upstream.Client {
	return upstream.NewClient(
		upstream.WithBaseURL(url),
		upstream.WithBackoff(0),
		upstream.WithRequestDelay(0),
		upstream.WithRetries(3),
	)
}

func TestSchedule(t *testing.T) {
	Convey("Given a schedule spanning several days", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/schedule/2024-01-10" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(scheduleJSON))
		}))
		defer srv.Close()

		games, err := newClient(srv.URL).Schedule(context.Background(), model.MustParseDay("2024-01-10"))

		Convey("Then only the requested day's games with full names are returned", func() {
			So(err, ShouldBeNil)
			So(games, ShouldHaveLength, 2)
			So(games[0], ShouldResemble, model.Game{
				GameID:   "2023020610",
				Date:     model.MustParseDay("2024-01-10"),
				HomeTeam: "Vancouver Canucks",
				AwayTeam: "Calgary Flames",
			})
			So(games[1].HomeTeam, ShouldEqual, "Team Atlantic")
		})
	})
}

func TestBoxscore(t *testing.T) {
	game := model.Game{
		GameID:   "2023020610",
		Date:     model.MustParseDay("2024-01-10"),
		HomeTeam: "Vancouver Canucks",
		AwayTeam: "Calgary Flames",
	}

	Convey("Given a published box score", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasPrefix(r.URL.Path, "/schedule/"):
				_, _ = w.Write([]byte(scheduleJSON))
			case r.URL.Path == "/gamecenter/2023020610/boxscore":
				_, _ = w.Write([]byte(boxscoreJSON))
			default:
				// lineups not published yet
				_, _ = w.Write([]byte(`{"id": 1}`))
			}
		}))
		defer srv.Close()
		c := newClient(srv.URL)

		Convey("When fetching observations", func() {
			obs, err := c.Boxscore(context.Background(), game)
			So(err, ShouldBeNil)

			Convey("Then forwards and defense are converted, goalies ignored", func() {
				So(obs, ShouldHaveLength, 3)
				kadri := obs[0]
				So(kadri.Team, ShouldEqual, "Calgary Flames")
				So(kadri.Shots, ShouldEqual, 4)
				So(kadri.PenaltyMinutes, ShouldEqual, 2)
				So(kadri.TimeOnIce, ShouldEqual, 18*60+2)
				So(kadri.PowerPlayTOI, ShouldEqual, 130)
				So(obs[1].BlockedShots, ShouldEqual, 3)
				So(obs[1].PowerPlayTOI, ShouldEqual, 0)
				So(obs[2].Team, ShouldEqual, "Vancouver Canucks")
				So(obs[2].PowerPlayTOI, ShouldEqual, 0)
				So(obs[2].Date.String(), ShouldEqual, "2024-01-10")
			})
		})

		Convey("When fetching the roster", func() {
			roster, err := c.Roster(context.Background(), game)
			So(err, ShouldBeNil)
			So(roster["Calgary Flames"], ShouldResemble, []int64{8474150, 8480012})
			So(roster["Vancouver Canucks"], ShouldResemble, []int64{8480800})
		})

		Convey("When resolving a slate", func() {
			slate, err := c.Slate(context.Background(), model.MustParseDay("2024-01-10"))

			Convey("Then published rosters are attached and others left out", func() {
				So(err, ShouldBeNil)
				So(slate.Games, ShouldHaveLength, 2)
				So(slate.Rosters, ShouldContainKey, "Vancouver Canucks")
				So(slate.Rosters, ShouldNotContainKey, "Team Atlantic")
			})
		})
	})

	Convey("Given a box score before lineups are published", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id": 2023020610}`))
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Roster(context.Background(), game)
		So(errors.Is(err, upstream.ErrRosterUnavailable), ShouldBeTrue)
	})
}

func TestRetries(t *testing.T) {
	day := model.MustParseDay("2024-01-10")

	Convey("Given an upstream that is briefly rate limited", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(scheduleJSON))
		}))
		defer srv.Close()

		games, err := newClient(srv.URL).Schedule(context.Background(), day)

		Convey("Then the request succeeds after retrying", func() {
			So(err, ShouldBeNil)
			So(games, ShouldHaveLength, 2)
			So(calls.Load(), ShouldEqual, 3)
		})
	})

	Convey("Given an upstream that keeps failing", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Schedule(context.Background(), day)

		Convey("Then retries are bounded and the failure is explicit", func() {
			So(errors.Is(err, upstream.ErrRetriesExhausted), ShouldBeTrue)
			So(errors.Is(err, upstream.ErrStatus), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 4)
		})
	})

	Convey("Given a non-retryable status", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Schedule(context.Background(), day)
		So(errors.Is(err, upstream.ErrStatus), ShouldBeTrue)
		So(calls.Load(), ShouldEqual, 1)
	})

	Convey("Given a malformed payload", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"gameWeek": [`))
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Schedule(context.Background(), day)
		So(errors.Is(err, upstream.ErrDecode), ShouldBeTrue)
	})
}
