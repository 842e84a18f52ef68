package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/subnetlab/minerscope/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func clearEnv() {
	for _, kv := range os.Environ() {
		if len(kv) > 11 && kv[:11] == "MINERSCOPE_" {
			for i := range kv {
				if kv[i] == '=' {
					os.Unsetenv(kv[:i])
					break
				}
			}
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no env overrides", t, func() {
		clearEnv()

		Convey("When loading", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)

			Convey("Then defaults apply", func() {
				So(cfg.Addr, ShouldEqual, ":9090")
				So(cfg.LogLevel, ShouldEqual, "info")
				So(cfg.QueueSize, ShouldEqual, 100_000)
				So(cfg.DownloadImages, ShouldBeTrue)
				So(cfg.GalleryWidth, ShouldEqual, 500)
			})
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	Convey("Given env overrides", t, func() {
		clearEnv()
		os.Setenv("MINERSCOPE_ADDR", ":7070")
		os.Setenv("MINERSCOPE_LOG_LEVEL", "debug")
		os.Setenv("MINERSCOPE_ENTITY", "subnet34")
		defer clearEnv()

		Convey("When loading", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)

			Convey("Then env wins over defaults", func() {
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.LogLevel, ShouldEqual, "debug")
				So(cfg.Entity, ShouldEqual, "subnet34")
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		clearEnv()
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		yaml := "addr: \":6060\"\nproject: \"deepfake-detection\"\nqueue_size: 1234\n"
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
		os.Setenv("MINERSCOPE_CONFIG", path)
		defer clearEnv()

		Convey("When loading", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)

			Convey("Then file values override defaults", func() {
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.Project, ShouldEqual, "deepfake-detection")
				So(cfg.QueueSize, ShouldEqual, 1234)
			})
		})

		Convey("When env overrides the file", func() {
			os.Setenv("MINERSCOPE_ADDR", ":5050")
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
		})
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given an invalid override", t, func() {
		clearEnv()
		os.Setenv("MINERSCOPE_ADDR", "")
		defer clearEnv()

		Convey("When loading", func() {
			_, err := config.Load(context.Background())

			Convey("Then validation fails with the sentinel kind", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})

	Convey("Given a missing config file", t, func() {
		clearEnv()
		os.Setenv("MINERSCOPE_CONFIG", "/nonexistent/config.yaml")
		defer clearEnv()

		Convey("When loading", func() {
			_, err := config.Load(context.Background())
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}
