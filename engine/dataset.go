package engine

import (
	"sort"

	"github.com/google/uuid"
)

// ============================================================================
// RECORD STORE — Immutable, date-ordered inspection dataset
// ============================================================================
// The engine never hands out the backing slice. Readers go through
// RecordView, and filtering produces a Selection (index lists into the
// dataset, zero-copy).
//
// Implementations:
//   Dataset     — the full, ordered record set (one per load)
//   StepView    — one step's records inside a Selection
// ============================================================================

// RecordView provides indexed, read-only access to records.
type RecordView interface {
	Len() int
	At(index int) Record
}

// ============================================================================
// DATASET BUILDER — append-only during load
// ============================================================================

// DatasetBuilder accumulates records during a load. Build freezes them.
type DatasetBuilder struct {
	records []Record
}

// NewDatasetBuilder creates an empty builder.
func NewDatasetBuilder() *DatasetBuilder {
	return &DatasetBuilder{}
}

// Add appends a record. Spec limits are copied so later caller edits cannot leak in.
func (b *DatasetBuilder) Add(rec Record) *DatasetBuilder {
	if rec.Spec != nil {
		spec := *rec.Spec
		rec.Spec = &spec
	}
	b.records = append(b.records, rec)
	return b
}

// Len returns the number of records added so far.
func (b *DatasetBuilder) Len() int { return len(b.records) }

// Build returns the immutable Dataset. The builder can keep appending;
// later Builds produce new datasets with new versions.
func (b *DatasetBuilder) Build() *Dataset {
	records := make([]Record, len(b.records))
	copy(records, b.records)
	return newDataset(records)
}

// ============================================================================
// DATASET
// ============================================================================

// Dataset is an immutable, chronologically ordered collection of records.
// Safe for concurrent reads.
type Dataset struct {
	version string
	records []Record
	steps   []string         // order of first appearance (chronological)
	byStep  map[string][]int // step → indices into records, ascending by time
}

// NewDataset copies records into a fresh Dataset.
func NewDataset(records []Record) *Dataset {
	b := NewDatasetBuilder()
	for _, r := range records {
		b.Add(r)
	}
	return b.Build()
}

func newDataset(records []Record) *Dataset {
	// Stable: rows sharing a timestamp keep load order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	ds := &Dataset{
		version: uuid.NewString(),
		records: records,
		byStep:  make(map[string][]int),
	}
	for i, r := range records {
		if _, exists := ds.byStep[r.Step]; !exists {
			ds.steps = append(ds.steps, r.Step)
		}
		ds.byStep[r.Step] = append(ds.byStep[r.Step], i)
	}
	return ds
}

// Version identifies this load. Two Builds never share a version.
func (d *Dataset) Version() string { return d.version }

func (d *Dataset) Len() int { return len(d.records) }

// At returns a copy of the record at index i.
func (d *Dataset) At(i int) Record {
	rec := d.records[i]
	if rec.Spec != nil {
		spec := *rec.Spec
		rec.Spec = &spec
	}
	return rec
}

// Steps returns step identifiers in order of first appearance.
func (d *Dataset) Steps() []string {
	out := make([]string, len(d.steps))
	copy(out, d.steps)
	return out
}

// HasStep reports whether any record belongs to step.
func (d *Dataset) HasStep(step string) bool {
	_, ok := d.byStep[step]
	return ok
}

// Step returns a view over every record of one step, or an empty view.
func (d *Dataset) Step(step string) *StepView {
	return &StepView{step: step, parent: d, indices: d.byStep[step]}
}

// ============================================================================
// STEP VIEW — one step's records (zero-copy)
// ============================================================================

// StepView is a chronologically ordered subset of a Dataset for one step.
type StepView struct {
	step    string
	parent  *Dataset
	indices []int
}

// Name returns the step identifier.
func (v *StepView) Name() string { return v.step }

func (v *StepView) Len() int { return len(v.indices) }

func (v *StepView) At(i int) Record { return v.parent.At(v.indices[i]) }

// Values returns the measured values in view order.
func (v *StepView) Values() []float64 {
	out := make([]float64, len(v.indices))
	for i, idx := range v.indices {
		out[i] = v.parent.records[idx].Value
	}
	return out
}

// Records returns copies of the records in view order.
func (v *StepView) Records() []Record {
	out := make([]Record, len(v.indices))
	for i := range v.indices {
		out[i] = v.At(i)
	}
	return out
}
