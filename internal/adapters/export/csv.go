// Package export writes generated datasets as CSV for downstream
// aggregation tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/crowdsynth/internal/domain/model"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// Bundle is everything written for one dataset.
type Bundle struct {
	// Prefix is prepended to every file name, e.g. "replicate-000".
	Prefix      string
	GroundTruth []int
	Crowd       []model.Worker // optional
	Labels      []model.Label
}

// WriteLabels writes task,worker,class rows.
func WriteLabels(w io.Writer, labels []model.Label) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task", "worker", "class"}); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	for _, l := range labels {
		rec := []string{strconv.Itoa(l.Task), strconv.Itoa(l.Worker), strconv.Itoa(l.Class)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	return flush(cw)
}

// ReplicateLabels tags a label set with the replicate that produced it.
type ReplicateLabels struct {
	Replicate int
	Labels    []model.Label
}

// WriteReplicateLabels writes replicate,task,worker,class rows for several
// datasets under a single header.
func WriteReplicateLabels(w io.Writer, sets []ReplicateLabels) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"replicate", "task", "worker", "class"}); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	for _, set := range sets {
		rep := strconv.Itoa(set.Replicate)
		for _, l := range set.Labels {
			rec := []string{rep, strconv.Itoa(l.Task), strconv.Itoa(l.Worker), strconv.Itoa(l.Class)}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("%w: %w", ErrWriteFailed, err)
			}
		}
	}
	return flush(cw)
}

// WriteGroundTruth writes task,class rows in task id order.
func WriteGroundTruth(w io.Writer, truth []int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task", "class"}); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	for id, class := range truth {
		if err := cw.Write([]string{strconv.Itoa(id), strconv.Itoa(class)}); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	return flush(cw)
}

// WriteCrowd writes one row per worker with its archetype, workload and
// mean diagonal mass.
func WriteCrowd(w io.Writer, workers []model.Worker) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"worker", "archetype", "workload", "diagonal_mass"}); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	for _, wk := range workers {
		mass := 0.0
		if wk.Confusion != nil {
			mass = wk.Confusion.DiagonalMass()
		}
		rec := []string{
			strconv.Itoa(wk.ID),
			wk.Archetype.String(),
			strconv.Itoa(wk.Workload),
			strconv.FormatFloat(mass, 'f', 6, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	return flush(cw)
}

// WriteBundle writes <prefix>labels.csv, <prefix>truth.csv and, when a crowd
// is present, <prefix>crowd.csv into dir. It returns the written paths.
func WriteBundle(dir string, b Bundle) ([]string, error) {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	var paths []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, b.Prefix+name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		paths = append(paths, path)
		return nil
	}

	if err := write("labels.csv", func(w io.Writer) error { return WriteLabels(w, b.Labels) }); err != nil {
		return nil, err
	}
	if err := write("truth.csv", func(w io.Writer) error { return WriteGroundTruth(w, b.GroundTruth) }); err != nil {
		return nil, err
	}
	if b.Crowd != nil {
		if err := write("crowd.csv", func(w io.Writer) error { return WriteCrowd(w, b.Crowd) }); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
