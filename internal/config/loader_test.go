package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/goalcast/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RollWindow, convey.ShouldEqual, 10)
				convey.So(cfg.RosterFilter, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GOALCAST_ADDR", ":8080")
			_ = os.Setenv("GOALCAST_ROLL_WINDOW", "5")
			_ = os.Setenv("GOALCAST_ROSTER_FILTER", "false")
			_ = os.Setenv("GOALCAST_TRAIN_LEARNING_RATE", "0.05")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RollWindow, convey.ShouldEqual, 5)
				convey.So(cfg.RosterFilter, convey.ShouldBeFalse)
				convey.So(cfg.TrainLearningRate, convey.ShouldEqual, 0.05)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
roll_window: 20
records_path: "/tmp/records.csv"
timezone: "America/Toronto"
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GOALCAST_CONFIG", tmpFile)
			_ = os.Setenv("GOALCAST_ROLL_WINDOW", "7")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RecordsPath, convey.ShouldEqual, "/tmp/records.csv")
				convey.So(cfg.Timezone, convey.ShouldEqual, "America/Toronto")
				convey.So(cfg.RollWindow, convey.ShouldEqual, 7)
				convey.So(cfg.FeaturesPath, convey.ShouldEqual, config.New().FeaturesPath)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("GOALCAST_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("GOALCAST_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the rolling window is not positive", func() {
			_ = os.Setenv("GOALCAST_ROLL_WINDOW", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "roll_window")
			})
		})

		convey.Convey("When postgres is selected without a DSN", func() {
			_ = os.Setenv("GOALCAST_STORE_BACKEND", "postgres")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the timezone is unknown", func() {
			_ = os.Setenv("GOALCAST_TIMEZONE", "Mars/Olympus_Mons")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("GOALCAST_ROLL_WINDOW", "ten")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"GOALCAST_CONFIG",
		"GOALCAST_ADDR",
		"GOALCAST_ROLL_WINDOW",
		"GOALCAST_ROSTER_FILTER",
		"GOALCAST_TRAIN_LEARNING_RATE",
		"GOALCAST_STORE_BACKEND",
		"GOALCAST_TIMEZONE",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "goalcast-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
