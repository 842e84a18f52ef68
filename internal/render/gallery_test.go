package render_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/subnetlab/minerscope/internal/adapters/media"
	"github.com/subnetlab/minerscope/internal/domain/aggregate"
	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/internal/render"
	. "github.com/smartystreets/goconvey/convey"
)

func fixtureRows() []aggregate.DetailedRow {
	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return []aggregate.DetailedRow{
		{
			ChallengeID: "c1", MinerID: "m02", Modality: model.ModalityImage,
			Truth: model.ClassSynthetic, Predicted: model.ValidClass(model.ClassSynthetic),
			Score: 0.91, HasScore: true, CorrectBin: true, CorrectMulti: true,
			MediaRef: "files/c1.png", ValidatorRun: "validator-77", TS: ts,
		},
		{
			ChallengeID: "c1", MinerID: "m01", Modality: model.ModalityImage,
			Truth: model.ClassSynthetic, Predicted: model.ValidClass(model.ClassReal),
			Score: 0.12, HasScore: true, CorrectBin: false, CorrectMulti: false,
			MediaRef: "files/c1.png", ValidatorRun: "validator-77", TS: ts,
		},
		{
			ChallengeID: "c2", MinerID: "m01", Modality: model.ModalityVideo,
			Truth: model.ClassReal, Predicted: model.InvalidClass(),
			MediaRef: "files/c2.mp4", ValidatorRun: "validator-77", TS: ts,
		},
		{
			// no media downloaded for this challenge
			ChallengeID: "c3", MinerID: "m01", Modality: model.ModalityImage,
			Truth: model.ClassReal, Predicted: model.ValidClass(model.ClassReal),
			CorrectBin: true, CorrectMulti: true, TS: ts,
		},
	}
}

func fixtureManifest(dir string) media.Manifest {
	return media.Manifest{
		"c1": filepath.Join(dir, "c1.png"),
		"c2": filepath.Join(dir, "c2.mp4"),
	}
}

func TestRender(t *testing.T) {
	Convey("Given detailed rows and a media manifest", t, func() {
		g, err := render.New(render.WithTitle("run 77 audit"))
		So(err, ShouldBeNil)

		Convey("When rendering", func() {
			var buf bytes.Buffer
			err := g.Render(&buf, fixtureRows(), fixtureManifest("media"))
			So(err, ShouldBeNil)
			html := buf.String()

			Convey("Then only challenges with media appear", func() {
				So(html, ShouldContainSubstring, "c1")
				So(html, ShouldContainSubstring, "c2")
				So(html, ShouldNotContainSubstring, "c3")
			})

			Convey("Then the title and truth labels render", func() {
				So(html, ShouldContainSubstring, "run 77 audit")
				So(html, ShouldContainSubstring, "ground truth: synthetic")
				So(html, ShouldContainSubstring, "ground truth: real")
			})

			Convey("Then miners are ordered and marked by correctness", func() {
				So(strings.Index(html, "m01"), ShouldBeLessThan, strings.Index(html, "m02"))
				So(html, ShouldContainSubstring, `class="correct">correct`)
				So(html, ShouldContainSubstring, `class="wrong">wrong`)
			})

			Convey("Then videos get a video tag and invalid answers show as invalid", func() {
				So(html, ShouldContainSubstring, "<video")
				So(html, ShouldContainSubstring, "c2.mp4")
				So(html, ShouldContainSubstring, ">invalid<")
			})
		})

		Convey("When capping the item count", func() {
			capped, err := render.New(render.WithMaxItems(1))
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			So(capped.Render(&buf, fixtureRows(), fixtureManifest("media")), ShouldBeNil)

			Convey("Then only the first challenge by id renders", func() {
				So(buf.String(), ShouldContainSubstring, "c1.png")
				So(buf.String(), ShouldNotContainSubstring, "c2.mp4")
			})
		})
	})
}

func TestRenderFile(t *testing.T) {
	Convey("Given an output path next to the media directory", t, func() {
		dir := t.TempDir()
		mediaDir := filepath.Join(dir, "media")
		So(os.MkdirAll(mediaDir, 0o755), ShouldBeNil)

		g, err := render.New()
		So(err, ShouldBeNil)

		Convey("When rendering to a file", func() {
			out := filepath.Join(dir, "gallery.html")
			err := g.RenderFile(out, fixtureRows(), fixtureManifest(mediaDir))
			So(err, ShouldBeNil)

			Convey("Then media paths are relative to the page", func() {
				body, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				So(string(body), ShouldContainSubstring, `src="media/c1.png"`)
			})
		})
	})
}
