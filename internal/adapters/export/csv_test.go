package export_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/crowdsynth/internal/adapters/export"
	"github.com/okian/crowdsynth/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriters(t *testing.T) {
	Convey("Given a few labels", t, func() {
		labels := []model.Label{{Task: 0, Worker: 3, Class: 1}, {Task: 2, Worker: 1, Class: 0}}

		Convey("When writing labels", func() {
			var buf bytes.Buffer
			err := export.WriteLabels(&buf, labels)

			Convey("Then a header and one row per triplet are written", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldEqual, "task,worker,class\n0,3,1\n2,1,0\n")
			})
		})

		Convey("When the writer fails", func() {
			err := export.WriteLabels(failingWriter{}, labels)

			Convey("Then an export error is returned", func() {
				So(errors.Is(err, export.ErrWriteFailed), ShouldBeTrue)
			})
		})
	})

	Convey("Given labels from two replicates", t, func() {
		sets := []export.ReplicateLabels{
			{Replicate: 0, Labels: []model.Label{{Task: 1, Worker: 2, Class: 0}}},
			{Replicate: 1, Labels: []model.Label{{Task: 0, Worker: 4, Class: 1}, {Task: 1, Worker: 0, Class: 1}}},
		}

		Convey("When writing them to one stream", func() {
			var buf bytes.Buffer
			err := export.WriteReplicateLabels(&buf, sets)

			Convey("Then a single header precedes rows tagged by replicate", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldEqual, "replicate,task,worker,class\n0,1,2,0\n1,0,4,1\n1,1,0,1\n")
			})
		})

		Convey("When the writer fails", func() {
			err := export.WriteReplicateLabels(failingWriter{}, sets)

			Convey("Then an export error is returned", func() {
				So(errors.Is(err, export.ErrWriteFailed), ShouldBeTrue)
			})
		})
	})

	Convey("Given a ground truth vector", t, func() {
		var buf bytes.Buffer
		err := export.WriteGroundTruth(&buf, []int{1, 0, 1})

		Convey("Then rows follow task id order", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldEqual, "task,class\n0,1\n1,0\n2,1\n")
		})
	})

	Convey("Given a crowd", t, func() {
		cm := model.NewConfusionMatrix(2)
		cm.SetRow(0, []float64{0.75, 0.25})
		cm.SetRow(1, []float64{0.25, 0.75})
		workers := []model.Worker{{ID: 4, Archetype: model.Adversary, Confusion: cm, Workload: 2}}

		var buf bytes.Buffer
		err := export.WriteCrowd(&buf, workers)

		Convey("Then archetype, workload and diagonal mass are written", func() {
			So(err, ShouldBeNil)
			So(buf.String(), ShouldEqual, "worker,archetype,workload,diagonal_mass\n4,adversary,2,0.750000\n")
		})
	})
}

func TestWriteBundle(t *testing.T) {
	Convey("Given a bundle with a crowd", t, func() {
		dir := filepath.Join(t.TempDir(), "out")
		paths, err := export.WriteBundle(dir, export.Bundle{
			Prefix:      "replicate-000-",
			GroundTruth: []int{0, 1},
			Crowd:       []model.Worker{{ID: 0}},
			Labels:      []model.Label{{Task: 1, Worker: 0, Class: 1}},
		})

		Convey("Then three files are created in the directory", func() {
			So(err, ShouldBeNil)
			So(paths, ShouldHaveLength, 3)
			data, readErr := os.ReadFile(filepath.Join(dir, "replicate-000-labels.csv"))
			So(readErr, ShouldBeNil)
			So(string(data), ShouldEqual, "task,worker,class\n1,0,1\n")
		})
	})

	Convey("Given a bundle without a crowd", t, func() {
		paths, err := export.WriteBundle(t.TempDir(), export.Bundle{GroundTruth: []int{1}})

		Convey("Then the crowd file is skipped", func() {
			So(err, ShouldBeNil)
			So(paths, ShouldHaveLength, 2)
		})
	})

	Convey("Given a directory path that is a file", t, func() {
		file := filepath.Join(t.TempDir(), "taken")
		So(os.WriteFile(file, nil, 0o600), ShouldBeNil)
		_, err := export.WriteBundle(file, export.Bundle{})

		Convey("Then the write fails", func() {
			So(errors.Is(err, export.ErrWriteFailed), ShouldBeTrue)
		})
	})
}
