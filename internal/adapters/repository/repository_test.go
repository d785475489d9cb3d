package repository_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/goalcast/internal/adapters/repository"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/internal/domain/model"
	"github.com/okian/goalcast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	logger.Init()
}

func sample(game, day string, player int64, team string, goals int) model.Observation {
	return model.Observation{
		GameID:         game,
		Date:           model.MustParseDay(day),
		PlayerID:       player,
		PlayerName:     "Player, Jr.",
		Team:           team,
		Goals:          goals,
		Shots:          goals + 2,
		TimeOnIce:      17*60 + 5,
		PowerPlayTOI:   95,
		ShortHandedTOI: 0,
	}
}

func dayOne() []model.Observation {
	return []model.Observation{
		sample("2023020001", "2023-10-10", 8478402, "Edmonton Oilers", 1),
		sample("2023020001", "2023-10-10", 8477934, "Vancouver Canucks", 0),
	}
}

func storeContract(newStore func() repository.Store) {
	ctx := context.Background()
	batch := uuid.New()

	Convey("When a day is appended twice", func() {
		s := newStore()
		defer s.Close()

		n, err := s.Append(ctx, batch, dayOne())
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 2)

		rescrape := dayOne()
		rescrape[0].Goals = 2
		_, err = s.Append(ctx, uuid.New(), rescrape)
		So(err, ShouldBeNil)

		Convey("Then dedupe keeps the last record per key and is idempotent", func() {
			_, err := s.Dedupe(ctx)
			So(err, ShouldBeNil)
			count, err := s.Count(ctx)
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 2)

			removed, err := s.Dedupe(ctx)
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 0)
			again, _ := s.Count(ctx)
			So(again, ShouldEqual, count)

			all, err := s.All(ctx)
			So(err, ShouldBeNil)
			var mcdavid model.Observation
			for _, o := range all {
				if o.PlayerID == 8478402 {
					mcdavid = o
				}
			}
			So(mcdavid.Goals, ShouldEqual, 2)
			So(mcdavid.TimeOnIce, ShouldEqual, 17*60+5)
			So(mcdavid.PlayerName, ShouldEqual, "Player, Jr.")
		})

		Convey("Then records come back in ingestion order", func() {
			all, err := s.All(ctx)
			So(err, ShouldBeNil)
			for i := 1; i < len(all); i++ {
				So(all[i].Seq, ShouldBeGreaterThan, all[i-1].Seq)
			}
		})
	})

	Convey("When two writers lock the same day", func() {
		s := newStore()
		defer s.Close()
		day := model.MustParseDay("2023-10-10")

		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := s.LockDay(ctx, day)
				if err != nil {
					return
				}
				defer unlock()
				if v := inside.Add(1); v > maxInside.Load() {
					maxInside.Store(v)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
			}()
		}
		wg.Wait()

		Convey("Then they never overlap", func() {
			So(maxInside.Load(), ShouldEqual, 1)
		})
	})

	Convey("When the context is done while waiting for a day lock", func() {
		s := newStore()
		defer s.Close()
		day := model.MustParseDay("2023-10-11")
		unlock, err := s.LockDay(ctx, day)
		So(err, ShouldBeNil)
		defer unlock()

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = s.LockDay(short, day)

		Convey("Then the wait is abandoned", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		storeContract(func() repository.Store { return repository.NewMemoryStore() })
	})
}

func TestCSVStore(t *testing.T) {
	Convey("Given a CSV store", t, func() {
		dir := t.TempDir()
		var n int
		storeContract(func() repository.Store {
			n++
			return repository.NewCSVStore(filepath.Join(dir, strings.Repeat("x", n)+".csv"))
		})
	})

	Convey("Given a hand-edited record file", t, func() {
		path := filepath.Join(t.TempDir(), "records.csv")
		content := "Game_ID,Date,Player_ID,Player_Name,Team,Goals,Assists,Shots,Hits,Blocked_Shots,Penalty_Minutes,Time_On_Ice,PowerPlay_TOI,ShortHanded_TOI\n" +
			"2023020001,2023-10-10,8478402,Connor McDavid,Edmonton Oilers,1,,n/a,2,0,2,21:14,bad,00:00\n"
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		all, err := repository.NewCSVStore(path).All(context.Background())

		Convey("Then missing or non-numeric stats read as 0", func() {
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 1)
			So(all[0].Goals, ShouldEqual, 1)
			So(all[0].Assists, ShouldEqual, 0)
			So(all[0].Shots, ShouldEqual, 0)
			So(all[0].TimeOnIce, ShouldEqual, 21*60+14)
			So(all[0].PowerPlayTOI, ShouldEqual, 0)
		})
	})

	Convey("Given a record with an unparseable date", t, func() {
		path := filepath.Join(t.TempDir(), "records.csv")
		So(os.WriteFile(path, []byte("Game_ID,Date,Player_ID,Team\n1,yesterday,2,X\n"), 0o600), ShouldBeNil)
		_, err := repository.NewCSVStore(path).All(context.Background())
		So(errors.Is(err, repository.ErrCorruptRecord), ShouldBeTrue)
	})

	Convey("Given a missing record file", t, func() {
		all, err := repository.NewCSVStore(filepath.Join(t.TempDir(), "none.csv")).All(context.Background())
		So(err, ShouldBeNil)
		So(all, ShouldBeEmpty)
	})

	Convey("Given a closed store", t, func() {
		s := repository.NewCSVStore(filepath.Join(t.TempDir(), "r.csv"))
		So(s.Close(), ShouldBeNil)
		_, err := s.All(context.Background())
		So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
	})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GOALCAST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GOALCAST_TEST_POSTGRES_DSN not set")
	}
	Convey("Given a postgres store", t, func() {
		ctx := context.Background()
		storeContract(func() repository.Store {
			s, err := repository.NewPostgresStore(ctx, dsn)
			So(err, ShouldBeNil)
			return s
		})
	})
}

func TestFeatureTables(t *testing.T) {
	schema := features.DefaultSchema(10)
	obs := []model.Observation{
		sample("g1", "2024-01-10", 1, "Edmonton Oilers", 1),
		sample("g1", "2024-01-10", 2, "Calgary Flames", 0),
		sample("g2", "2024-01-12", 1, "Edmonton Oilers", 2),
		sample("g2", "2024-01-12", 2, "Calgary Flames", 3),
		sample("g3", "2024-01-15", 1, "Edmonton Oilers", 0),
		sample("g3", "2024-01-15", 2, "Calgary Flames", 1),
	}
	for i := range obs {
		obs[i].Seq = int64(i)
	}

	Convey("Given a built feature table", t, func() {
		table, err := features.Build(obs, schema)
		So(err, ShouldBeNil)

		Convey("When it is rebuilt from the same records", func() {
			again, err := features.Build(obs, schema)
			So(err, ShouldBeNil)

			var a, b bytes.Buffer
			So(repository.WriteFeatures(&a, table), ShouldBeNil)
			So(repository.WriteFeatures(&b, again), ShouldBeNil)

			Convey("Then the bytes are identical", func() {
				So(a.String(), ShouldEqual, b.String())
				So(a.String(), ShouldStartWith, "Game_ID,Date,Player_ID")
				So(a.String(), ShouldContainSubstring, "Avg_Goals_Last_10")
			})
		})

		Convey("When saved and loaded from disk", func() {
			dir := t.TempDir()
			files := repository.TableFiles{
				FeaturesPath: filepath.Join(dir, "features.csv"),
				DefensePath:  filepath.Join(dir, "defense.csv"),
			}
			So(files.Save(table), ShouldBeNil)
			loaded, err := files.Load(context.Background(), schema)
			So(err, ShouldBeNil)

			Convey("Then values and point-in-time lookups survive", func() {
				So(loaded.Rows, ShouldHaveLength, len(table.Rows))
				for i := range table.Rows {
					So(loaded.Rows[i].Values, ShouldResemble, table.Rows[i].Values)
					So(loaded.Rows[i].PlayerID, ShouldEqual, table.Rows[i].PlayerID)
					So(loaded.Rows[i].Opponent, ShouldEqual, table.Rows[i].Opponent)
				}
				day := model.MustParseDay("2024-01-15")
				So(loaded.DefenseBefore(day), ShouldResemble, table.DefenseBefore(day))
				So(loaded.GoalsBefore(day), ShouldResemble, table.GoalsBefore(day))
			})

			Convey("Then writing the loaded table reproduces the file", func() {
				var buf bytes.Buffer
				So(repository.WriteFeatures(&buf, loaded), ShouldBeNil)
				disk, _ := os.ReadFile(files.FeaturesPath)
				So(buf.String(), ShouldEqual, string(disk))
			})

			Convey("Then loading with another window is a schema error", func() {
				_, err := files.Load(context.Background(), features.DefaultSchema(5))
				So(errors.Is(err, repository.ErrTableSchema), ShouldBeTrue)
				So(errors.Is(err, features.ErrFeatureContract), ShouldBeTrue)
			})
		})
	})
}
