// Package labeling simulates crowd workers answering tasks and emits the
// resulting (task, worker, observed class) triplets.
package labeling

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/crowdsynth/internal/domain/model"
	"github.com/okian/crowdsynth/internal/domain/task"
)

// abstain is the outcome index for a worker declining to rate under the
// one-coin model. It never leaves this package.
const abstain = 2

// LabelFixed runs n rounds; in each round every task, in order, is answered
// by one worker chosen uniformly from the crowd. The output holds exactly
// n*len(tasks) labels.
func LabelFixed(r *rand.Rand, tasks []model.Task, workers []model.Worker, n int) ([]model.Label, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: queries per task %d", model.ErrInvalidArgument, n)
	}
	if err := validate(tasks, workers); err != nil {
		return nil, err
	}

	labels := make([]model.Label, 0, n*len(tasks))
	for round := 0; round < n; round++ {
		for _, t := range tasks {
			w := &workers[r.IntN(len(workers))]
			labels = append(labels, observe(r, t, w))
		}
	}
	return labels, nil
}

// LabelPowerLaw lets every worker answer Workload tasks drawn uniformly with
// replacement, then gives each task one more label from a uniformly chosen
// worker so no task goes unlabeled. The output holds the total workload plus
// len(tasks) labels.
func LabelPowerLaw(r *rand.Rand, tasks []model.Task, workers []model.Worker) ([]model.Label, error) {
	if err := validate(tasks, workers); err != nil {
		return nil, err
	}
	total := 0
	for _, w := range workers {
		if w.Workload < 0 {
			return nil, fmt.Errorf("%w: worker %d has workload %d", model.ErrInvalidArgument, w.ID, w.Workload)
		}
		total += w.Workload
	}

	labels := make([]model.Label, 0, total+len(tasks))
	for i := range workers {
		w := &workers[i]
		for q := 0; q < w.Workload; q++ {
			t := tasks[r.IntN(len(tasks))]
			labels = append(labels, observe(r, t, w))
		}
	}
	for _, t := range tasks {
		w := &workers[r.IntN(len(workers))]
		labels = append(labels, observe(r, t, w))
	}
	return labels, nil
}

// LabelBonald simulates the binary one-coin model of Bonald and Combes over
// nWorkers workers and nTasks tasks. Ground truth is drawn with
// task.AssignClasses(nTasks, 2, proportion) and returned indexed by task id.
// For every (worker i, task s) pair the worker reports the truth with
// probability alpha*(1+theta[i])/2, the other class with probability
// alpha*(1-theta[i])/2 and abstains otherwise. Abstentions are dropped.
func LabelBonald(r *rand.Rand, nWorkers, nTasks int, alpha float64, theta, proportion []float64) ([]model.Label, []int, error) {
	if nWorkers < 1 {
		return nil, nil, fmt.Errorf("%w: worker count %d", model.ErrInvalidArgument, nWorkers)
	}
	if nTasks < 1 {
		return nil, nil, fmt.Errorf("%w: task count %d", model.ErrInvalidArgument, nTasks)
	}
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, nil, fmt.Errorf("%w: rating rate %v outside [0,1]", model.ErrInvalidArgument, alpha)
	}
	if len(theta) != nWorkers {
		return nil, nil, fmt.Errorf("%w: %d reliabilities for %d workers", model.ErrInvalidArgument, len(theta), nWorkers)
	}
	for i, th := range theta {
		if math.IsNaN(th) || th < -1 || th > 1 {
			return nil, nil, fmt.Errorf("%w: reliability[%d]=%v outside [-1,1]", model.ErrInvalidArgument, i, th)
		}
	}

	tasks, err := task.AssignClasses(r, nTasks, 2, proportion)
	if err != nil {
		return nil, nil, err
	}
	truth := task.GroundTruth(tasks)

	var labels []model.Label
	weights := make([]float64, 3)
	for i, th := range theta {
		weights[0] = alpha * (1 + th) / 2
		weights[1] = alpha * (1 - th) / 2
		weights[abstain] = 1 - alpha
		for s, g := range truth {
			switch SampleCategorical(r, weights) {
			case 0:
				labels = append(labels, model.Label{Task: s, Worker: i, Class: g})
			case 1:
				labels = append(labels, model.Label{Task: s, Worker: i, Class: 1 - g})
			}
		}
	}
	return labels, truth, nil
}

// observe draws the class worker w reports for task t.
func observe(r *rand.Rand, t model.Task, w *model.Worker) model.Label {
	return model.Label{
		Task:   t.ID,
		Worker: w.ID,
		Class:  SampleCategorical(r, w.Confusion.Row(t.Class)),
	}
}

// validate checks that the crowd is non-empty, agrees on K and that every
// task's true class is a valid row.
func validate(tasks []model.Task, workers []model.Worker) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%w: no tasks", model.ErrInvalidArgument)
	}
	if len(workers) == 0 {
		return fmt.Errorf("%w: empty crowd", model.ErrInvalidArgument)
	}
	k := -1
	for _, w := range workers {
		if w.Confusion == nil {
			return fmt.Errorf("%w: worker %d has no confusion matrix", model.ErrInvalidArgument, w.ID)
		}
		if k == -1 {
			k = w.Confusion.Classes()
		} else if w.Confusion.Classes() != k {
			return fmt.Errorf("%w: worker %d has %d classes, crowd has %d", model.ErrInvalidArgument, w.ID, w.Confusion.Classes(), k)
		}
	}
	for _, t := range tasks {
		if t.Class < 0 || t.Class >= k {
			return fmt.Errorf("%w: task %d has class %d outside [0,%d)", model.ErrInvalidArgument, t.ID, t.Class, k)
		}
	}
	return nil
}
