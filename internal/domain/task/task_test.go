package task_test

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/crowdsynth/internal/domain/model"
	"github.com/okian/crowdsynth/internal/domain/task"
	. "github.com/smartystreets/goconvey/convey"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestAssignClasses(t *testing.T) {
	Convey("Given 100 tasks split evenly between two classes", t, func() {
		tasks, err := task.AssignClasses(newRand(1), 100, 2, []float64{0.5, 0.5})

		Convey("Then every task gets exactly one class", func() {
			So(err, ShouldBeNil)
			So(tasks, ShouldHaveLength, 100)
			So(task.ClassCounts(tasks, 2), ShouldResemble, []int{50, 50})
		})

		Convey("Then every id 0..n-1 appears once", func() {
			ids := make([]int, len(tasks))
			for i, tk := range tasks {
				ids[i] = tk.ID
			}
			sort.Ints(ids)
			for i, id := range ids {
				So(id, ShouldEqual, i)
			}
		})

		Convey("Then the ground truth is indexed by task id", func() {
			truth := task.GroundTruth(tasks)
			for _, tk := range tasks {
				So(truth[tk.ID], ShouldEqual, tk.Class)
			}
		})
	})

	Convey("Given a proportion that does not divide n", t, func() {
		proportion := []float64{0.33, 0.33, 0.34}
		tasks, err := task.AssignClasses(newRand(2), 10, 3, proportion)

		Convey("Then leading classes get the floor and the last class the rest", func() {
			So(err, ShouldBeNil)
			So(task.ClassCounts(tasks, 3), ShouldResemble, []int{3, 3, 4})
		})
	})

	Convey("Given a class with zero proportion", t, func() {
		tasks, err := task.AssignClasses(newRand(3), 20, 3, []float64{0.5, 0, 0.5})

		Convey("Then that class is empty", func() {
			So(err, ShouldBeNil)
			So(task.ClassCounts(tasks, 3), ShouldResemble, []int{10, 0, 10})
		})
	})

	Convey("Given a single class", t, func() {
		tasks, err := task.AssignClasses(newRand(4), 5, 1, []float64{1})

		Convey("Then every task is class zero", func() {
			So(err, ShouldBeNil)
			So(task.ClassCounts(tasks, 1), ShouldResemble, []int{5})
		})
	})

	Convey("Given two generators seeded identically", t, func() {
		a, errA := task.AssignClasses(newRand(9), 50, 3, []float64{0.2, 0.3, 0.5})
		b, errB := task.AssignClasses(newRand(9), 50, 3, []float64{0.2, 0.3, 0.5})

		Convey("Then they produce the same assignment", func() {
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)
			So(cmp.Diff(a, b), ShouldBeEmpty)
		})
	})

	Convey("Given invalid input", t, func() {
		cases := []struct {
			name       string
			n, k       int
			proportion []float64
		}{
			{"zero tasks", 0, 2, []float64{0.5, 0.5}},
			{"zero classes", 10, 0, []float64{}},
			{"length mismatch", 10, 3, []float64{0.5, 0.5}},
			{"negative entry", 10, 2, []float64{1.2, -0.2}},
			{"sum below one", 10, 2, []float64{0.2, 0.2}},
		}
		for _, tc := range cases {
			Convey("When "+tc.name, func() {
				tasks, err := task.AssignClasses(newRand(5), tc.n, tc.k, tc.proportion)

				Convey("Then it fails without output", func() {
					So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
					So(tasks, ShouldBeNil)
				})
			})
		}
	})
}
