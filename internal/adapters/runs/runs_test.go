package runs_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/subnetlab/minerscope/internal/adapters/runs"
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

const runListBody = `{"runs": [{"id": "r-123", "name": "validator-77", "created_at": "2026-08-20T10:00:00Z"}]}`

// historyBody mixes both field spelling generations on purpose: the first row
// uses the modern names, the second the legacy ones, the third is malformed.
const historyBody = `{"rows": [
	{
		"_timestamp": 1755684000.5,
		"label": 1,
		"modality": "image",
		"image": {"path": "media/c1.png"},
		"miner_uids": [12, 40],
		"predictions": [[0.1, 0.8, 0.1], -1]
	},
	{
		"_timestamp": 1755684060,
		"label": "real",
		"modality": "video",
		"video": {"path": "media/c2.mp4"},
		"miner_uid": ["12"],
		"pred": [[0.9, 0.05, 0.05]]
	},
	{
		"_timestamp": 1755684120,
		"modality": "image",
		"miner_uids": [12],
		"predictions": [[0.5, 0.5]]
	}
]}`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("entity") != "subnetlab" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(runListBody))
	})
	mux.HandleFunc("/api/v1/runs/r-123/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(historyBody))
	})
	return httptest.NewServer(mux)
}

func TestListRuns(t *testing.T) {
	srv := newFixtureServer(t)
	defer srv.Close()

	Convey("Given a run-tracking endpoint", t, func() {
		client := runs.New(srv.URL, runs.WithAPIKey("test-key"))

		Convey("When listing runs for a known project", func() {
			got, err := client.ListRuns(context.Background(), "subnetlab", "deepfake", runs.Query{})
			So(err, ShouldBeNil)

			Convey("Then the matching run is returned", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "r-123")
				So(got[0].Name, ShouldEqual, "validator-77")
			})
		})

		Convey("When the API key is wrong", func() {
			bad := runs.New(srv.URL, runs.WithAPIKey("nope"))
			_, err := bad.ListRuns(context.Background(), "subnetlab", "deepfake", runs.Query{})

			Convey("Then a fetch error kind surfaces", func() {
				So(errors.Is(err, runs.ErrFetch), ShouldBeTrue)
			})
		})
	})
}

func TestFetchDataset(t *testing.T) {
	srv := newFixtureServer(t)
	defer srv.Close()

	Convey("Given a run with mixed-generation history rows", t, func() {
		client := runs.New(srv.URL, runs.WithAPIKey("test-key"))

		Convey("When fetching the dataset", func() {
			challenges, predictions, err := client.FetchDataset(
				context.Background(), "subnetlab", "deepfake", runs.Query{})
			So(err, ShouldBeNil)

			Convey("Then the unlabeled row is skipped", func() {
				So(challenges, ShouldHaveLength, 2)
				So(predictions, ShouldHaveLength, 3)
			})

			Convey("Then modern-spelling rows decode fully", func() {
				ch := challenges[0]
				So(ch.ID, ShouldEqual, "validator-77/0")
				So(ch.RawLabel, ShouldEqual, "1")
				So(ch.Modality, ShouldEqual, model.ModalityImage)
				So(ch.MediaRef, ShouldEqual, "media/c1.png")
				So(ch.ValidatorRun, ShouldEqual, "validator-77")
				So(ch.TS.IsZero(), ShouldBeFalse)
			})

			Convey("Then probability vectors and no-response markers both decode", func() {
				So(predictions[0].MinerID, ShouldEqual, "12")
				So(predictions[0].Scores, ShouldResemble, []float64{0.1, 0.8, 0.1})
				So(predictions[0].RawClass, ShouldBeEmpty)

				So(predictions[1].MinerID, ShouldEqual, "40")
				So(predictions[1].Scores, ShouldBeNil)
				So(predictions[1].RawClass, ShouldEqual, "-1")
			})

			Convey("Then legacy-spelling rows decode the same way", func() {
				ch := challenges[1]
				So(ch.RawLabel, ShouldEqual, "real")
				So(ch.Modality, ShouldEqual, model.ModalityVideo)
				So(ch.MediaRef, ShouldEqual, "media/c2.mp4")
				So(predictions[2].Scores, ShouldResemble, []float64{0.9, 0.05, 0.05})
			})
		})
	})
}

func TestFetchDatasetServerError(t *testing.T) {
	Convey("Given an endpoint that always fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := runs.New(srv.URL)

		Convey("When fetching", func() {
			_, _, err := client.FetchDataset(context.Background(), "e", "p", runs.Query{})

			Convey("Then the fetch error kind surfaces", func() {
				So(errors.Is(err, runs.ErrFetch), ShouldBeTrue)
			})
		})
	})
}
