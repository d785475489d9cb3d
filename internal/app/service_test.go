package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/okian/goalcast/internal/adapters/repository"
	service "github.com/okian/goalcast/internal/app"
	"github.com/okian/goalcast/internal/domain/classifier"
	"github.com/okian/goalcast/internal/domain/inference"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	logger.Init()
}

var (
	season  = model.MustParseDay("2024-01-01")
	days    = 20
	teams   = []string{"Anaheim Ducks", "Boston Bruins", "Chicago Blackhawks", "Dallas Stars"}
	players = 8
)

// fakeUpstream serves a deterministic season: every day team 0 hosts team 1
// and team 2 hosts team 3, two skaters per team.
type fakeUpstream struct {
	failing map[string]bool
	fetched map[string]int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{failing: map[string]bool{}, fetched: map[string]int{}}
}

func gameID(d int, half string) string { return fmt.Sprintf("2023%04d%s", d, half) }

func (f *fakeUpstream) Schedule(_ context.Context, day model.Day) ([]model.Game, error) {
	d := int(day.Time().Sub(season.Time()) / (24 * time.Hour))
	if d < 0 || d > days {
		return nil, nil
	}
	return []model.Game{
		{GameID: gameID(d, "a"), Date: day, HomeTeam: teams[0], AwayTeam: teams[1]},
		{GameID: gameID(d, "b"), Date: day, HomeTeam: teams[2], AwayTeam: teams[3]},
	}, nil
}

func (f *fakeUpstream) Boxscore(_ context.Context, g model.Game) ([]model.Observation, error) {
	f.fetched[g.GameID]++
	if f.failing[g.GameID] {
		return nil, errors.New("upstream 503")
	}
	d := int(g.Date.Time().Sub(season.Time()) / (24 * time.Hour))
	var out []model.Observation
	for pid := int64(1); pid <= int64(players); pid++ {
		team := teams[(pid-1)/2]
		if team != g.HomeTeam && team != g.AwayTeam {
			continue
		}
		goals := 0
		if (int64(d)+pid)%3 == 0 {
			goals = 1
		}
		out = append(out, model.Observation{
			GameID:     g.GameID,
			Date:       g.Date,
			PlayerID:   pid,
			PlayerName: fmt.Sprintf("Player %d", pid),
			Team:       team,
			Goals:      goals,
			Assists:    int(pid % 2),
			Shots:      2 + 2*goals + int(pid%3),
			Hits:       int(pid),
			TimeOnIce:  900 + 30*int(pid),
		})
	}
	return out, nil
}

func (f *fakeUpstream) Slate(ctx context.Context, day model.Day) (model.Slate, error) {
	games, err := f.Schedule(ctx, day)
	if err != nil {
		return model.Slate{}, err
	}
	// on the prediction day only the first pairing plays.
	if len(games) > 1 && day.After(season.AddDays(days-1)) {
		games = games[:1]
	}
	return model.Slate{Date: day, Games: games}, nil
}

func tableFiles(dir string) repository.TableFiles {
	return repository.TableFiles{
		FeaturesPath: filepath.Join(dir, "features.csv"),
		DefensePath:  filepath.Join(dir, "defense.csv"),
	}
}

func newServiceIn(dir string, up *fakeUpstream, store repository.Store) *service.Service {
	return service.New(
		service.WithStore(store),
		service.WithUpstream(up),
		service.WithTableFiles(tableFiles(dir)),
		service.WithModelPath(filepath.Join(dir, "model.json")),
		service.WithTrainOptions(classifier.WithSeed(7)),
	)
}

func newService(t *testing.T, up *fakeUpstream, store repository.Store) *service.Service {
	return newServiceIn(t.TempDir(), up, store)
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	Convey("Given a day where one box score fails", t, func() {
		up := newFakeUpstream()
		up.failing[gameID(0, "b")] = true
		store := repository.NewMemoryStore()
		svc := newService(t, up, store)

		rep, err := svc.Ingest(ctx, season)
		So(err, ShouldBeNil)

		Convey("Then the other game is still ingested", func() {
			So(rep.Games, ShouldEqual, 1)
			So(rep.Observations, ShouldEqual, 4)
			So(rep.Failed, ShouldHaveLength, 1)
			So(rep.Failed[0].GameID, ShouldEqual, gameID(0, "b"))
		})

		Convey("When the day is ingested again after the upstream recovers", func() {
			delete(up.failing, gameID(0, "b"))
			rep, err := svc.Ingest(ctx, season)
			So(err, ShouldBeNil)

			Convey("Then only the failed game is fetched", func() {
				So(rep.Skipped, ShouldEqual, 1)
				So(rep.Games, ShouldEqual, 1)
				So(up.fetched[gameID(0, "a")], ShouldEqual, 1)
				So(up.fetched[gameID(0, "b")], ShouldEqual, 2)
				n, _ := store.Count(ctx)
				So(n, ShouldEqual, 8)
			})
		})
	})

	Convey("Given a day already in the store", t, func() {
		store := repository.NewMemoryStore()
		_, err := newService(t, newFakeUpstream(), store).Ingest(ctx, season)
		So(err, ShouldBeNil)

		Convey("When a new process ingests it again", func() {
			rep, err := newService(t, newFakeUpstream(), store).Ingest(ctx, season)
			So(err, ShouldBeNil)

			Convey("Then duplicates collapse and the record count is unchanged", func() {
				So(rep.Duplicates, ShouldEqual, 8)
				n, _ := store.Count(ctx)
				So(n, ShouldEqual, 8)
			})
		})
	})

	Convey("Given no upstream", t, func() {
		_, err := service.New(service.WithStore(repository.NewMemoryStore())).Ingest(ctx, season)
		So(errors.Is(err, service.ErrNoUpstream), ShouldBeTrue)
	})

	Convey("Given a backfill range", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(t, newFakeUpstream(), store)

		Convey("When it is inclusive of both ends", func() {
			reps, err := svc.Backfill(ctx, season, season.AddDays(2))
			So(err, ShouldBeNil)
			So(reps, ShouldHaveLength, 3)
			n, _ := store.Count(ctx)
			So(n, ShouldEqual, 24)
		})

		Convey("When it is reversed", func() {
			_, err := svc.Backfill(ctx, season.AddDays(2), season)
			So(errors.Is(err, service.ErrInvalidRange), ShouldBeTrue)
		})

		Convey("When it starts past the season", func() {
			reps, err := svc.Backfill(ctx, season.AddDays(40), season.AddDays(41))
			So(err, ShouldBeNil)
			So(reps, ShouldHaveLength, 2)
			So(reps[0].Games, ShouldEqual, 0)
		})
	})
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	target := season.AddDays(days)

	Convey("Given an ingested season", t, func() {
		dir := t.TempDir()
		svc := newServiceIn(dir, newFakeUpstream(), repository.NewMemoryStore())
		_, err := svc.Backfill(ctx, season, season.AddDays(days-1))
		So(err, ShouldBeNil)

		Convey("When nothing has been built yet", func() {
			_, err := svc.Predict(ctx, target, nil)
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
			So(errors.Is(svc.Ready(ctx), service.ErrNotReady), ShouldBeTrue)
		})

		Convey("When features are built", func() {
			rep, err := svc.BuildFeatures(ctx)
			So(err, ShouldBeNil)
			So(rep.Rows, ShouldEqual, days*players)
			So(rep.Malformed, ShouldEqual, 0)

			Convey("Then rebuilding yields identical bytes", func() {
				first := readTables(t, dir)
				_, err := svc.BuildFeatures(ctx)
				So(err, ShouldBeNil)
				So(readTables(t, dir), ShouldEqual, first)
			})

			Convey("And a model is trained", func() {
				tr, err := svc.Train(ctx)
				So(err, ShouldBeNil)
				So(tr.TrainRows+tr.TestRows, ShouldEqual, days*players)
				So(svc.Ready(ctx), ShouldBeNil)

				Convey("Then tonight's players are ranked and idle teams skipped", func() {
					res, err := svc.Predict(ctx, target, nil)
					So(err, ShouldBeNil)
					So(res.Columns, ShouldResemble, svc.Schema().Names())
					So(res.Predictions, ShouldHaveLength, 4)
					for i, p := range res.Predictions {
						So(p.Probability, ShouldBeBetweenOrEqual, 0, 1)
						So(p.Team == teams[0] || p.Team == teams[1], ShouldBeTrue)
						if i > 0 {
							So(p.Probability, ShouldBeLessThanOrEqualTo, res.Predictions[i-1].Probability)
						}
					}
					So(res.Skipped, ShouldHaveLength, 4)
					for _, s := range res.Skipped {
						So(s.Reason, ShouldEqual, inference.ReasonTeamNotPlaying)
					}
				})

				Convey("Then an unknown player is reported, not fatal", func() {
					res, err := svc.Predict(ctx, target, []int64{1, 404})
					So(err, ShouldBeNil)
					So(res.Predictions, ShouldHaveLength, 1)
					So(res.Skipped, ShouldResemble, []inference.Skipped{{PlayerID: 404, Reason: inference.ReasonNoHistory}})
				})
			})
		})

		Convey("When listing players", func() {
			ps, err := svc.Players(ctx)
			So(err, ShouldBeNil)
			So(ps, ShouldHaveLength, players)
			So(ps[0], ShouldResemble, service.Player{ID: 1, Name: "Player 1", Team: teams[0]})
		})

		Convey("When asking for the top performers of the first day", func() {
			top, err := svc.TopPerformers(ctx, season, 3)
			So(err, ShouldBeNil)

			Convey("Then points, then goals, then id decide", func() {
				So(top, ShouldHaveLength, 3)
				So(top[0].PlayerID, ShouldEqual, 3)
				So(top[0].Points, ShouldEqual, 2)
				So(top[1].PlayerID, ShouldEqual, 6)
				So(top[2].PlayerID, ShouldEqual, 1)
			})
		})
	})
}

func TestTonight(t *testing.T) {
	Convey("Given a clock just past midnight UTC", t, func() {
		loc, err := time.LoadLocation("America/Vancouver")
		So(err, ShouldBeNil)
		now := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
		svc := service.New(service.WithLocation(loc), service.WithClock(func() time.Time { return now }))

		Convey("Then tonight is still the previous local day", func() {
			So(svc.Tonight().String(), ShouldEqual, "2024-03-09")
			So(svc.Yesterday().String(), ShouldEqual, "2024-03-08")
		})
	})
}

func readTables(t *testing.T, dir string) string {
	t.Helper()
	var out []byte
	for _, p := range tableFiles(dir).Paths() {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, b...)
	}
	return string(out)
}
