package message

import "iter"

// Dataset is the immutable set of records loaded for one cache window.
// Len, IsEmpty, All and Records treat a nil *Dataset as empty.
type Dataset struct {
	records []Record
}

// NewDataset copies records into a new Dataset.
func NewDataset(records []Record) *Dataset {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Dataset{records: cp}
}

// Empty returns a dataset with no records.
func Empty() *Dataset {
	return &Dataset{}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// At returns a copy of the i-th record in file order. Like slice indexing it
// panics unless 0 <= i < Len().
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// All iterates records in file order.
func (d *Dataset) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := 0; i < d.Len(); i++ {
			if !yield(i, d.records[i]) {
				return
			}
		}
	}
}

// Records returns a copy of the records in file order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	cp := make([]Record, len(d.records))
	copy(cp, d.records)
	return cp
}
