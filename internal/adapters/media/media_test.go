package media_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/subnetlab/minerscope/internal/adapters/media"
	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func fixtureChallenges() []model.Challenge {
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return []model.Challenge{
		{ID: "c1", RawLabel: "real", Modality: model.ModalityImage, MediaRef: "files/c1.png", TS: ts},
		{ID: "c2", RawLabel: "synthetic", Modality: model.ModalityImage, MediaRef: "files/c2.png", TS: ts},
		{ID: "c3", RawLabel: "synthetic", Modality: model.ModalityVideo, MediaRef: "files/c3.mp4", TS: ts},
		{ID: "c4", RawLabel: "real", Modality: model.ModalityImage, TS: ts}, // no media
	}
}

func newMediaServer(hits *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/files/c2.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("payload:" + r.URL.Path))
	}))
}

func TestFetch(t *testing.T) {
	Convey("Given a media endpoint and a fresh directory", t, func() {
		var hits atomic.Int64
		srv := newMediaServer(&hits)
		defer srv.Close()
		dir := t.TempDir()

		Convey("When fetching with all modalities enabled", func() {
			d := media.New(srv.URL, dir)
			manifest, err := d.Fetch(context.Background(), fixtureChallenges())
			So(err, ShouldBeNil)

			Convey("Then reachable media lands on disk", func() {
				So(manifest, ShouldHaveLength, 2)

				path, ok := manifest.Lookup("c1")
				So(ok, ShouldBeTrue)
				body, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(body), ShouldEqual, "payload:/files/c1.png")

				_, ok = manifest.Lookup("c3")
				So(ok, ShouldBeTrue)
			})

			Convey("Then the failed download is absent but did not abort", func() {
				_, ok := manifest.Lookup("c2")
				So(ok, ShouldBeFalse)
			})

			Convey("Then a second fetch reuses the files", func() {
				before := hits.Load()
				again, err := d.Fetch(context.Background(), fixtureChallenges())
				So(err, ShouldBeNil)

				_, ok := again.Lookup("c1")
				So(ok, ShouldBeTrue)
				// only the previously failed file is retried
				So(hits.Load(), ShouldEqual, before+1)
			})
		})

		Convey("When videos are disabled", func() {
			d := media.New(srv.URL, dir, media.WithVideos(false))
			manifest, err := d.Fetch(context.Background(), fixtureChallenges())
			So(err, ShouldBeNil)

			_, ok := manifest.Lookup("c3")
			So(ok, ShouldBeFalse)
			_, err = os.Stat(filepath.Join(dir, "c3.mp4"))
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("When a download limit applies", func() {
			d := media.New(srv.URL, dir, media.WithLimit(1))
			manifest, err := d.Fetch(context.Background(), fixtureChallenges())
			So(err, ShouldBeNil)

			Convey("Then only one file is fetched this round", func() {
				So(manifest, ShouldHaveLength, 1)
			})

			Convey("Then repeated limited fetches make progress", func() {
				again, err := d.Fetch(context.Background(), fixtureChallenges())
				So(err, ShouldBeNil)
				So(len(again), ShouldEqual, 2)
			})
		})
	})
}
