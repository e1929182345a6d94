package ledger

import "github.com/Ramsey-B/fern/pkg/models"

// Batch buffers the skips of one batch so they reach the detail log all at once or not at all
type Batch struct {
	ledger  *Ledger
	records []models.SkipRecord
}

// RecordNullID records a row rejected before merging because a required field is null
func (b *Batch) RecordNullID(rec models.SkipRecord, field string) {
	rec.Reason = models.ReasonNullID
	rec.Field = field
	b.records = append(b.records, rec)
}

// RecordNullType records a row whose endpoint type discriminator is null or unrecognised
func (b *Batch) RecordNullType(rec models.SkipRecord, field string) {
	rec.Reason = models.ReasonNullType
	rec.Field = field
	b.records = append(b.records, rec)
}

// RecordUnresolved records a row returned by the merge executor
func (b *Batch) RecordUnresolved(row models.UnresolvedRow) models.ReasonCode {
	reason := Classify(row)
	b.records = append(b.records, models.SkipRecord{
		SourceID:   row.SourceID,
		TargetID:   row.TargetID,
		SourceType: row.SourceFamily.Discriminator(),
		TargetType: row.TargetFamily.Discriminator(),
		Reason:     reason,
	})
	return reason
}

// Len is the number of buffered records
func (b *Batch) Len() int {
	return len(b.records)
}

// NullCount is the number of buffered null skips
func (b *Batch) NullCount() int {
	n := 0
	for _, rec := range b.records {
		if rec.Reason.IsNullSkip() {
			n++
		}
	}
	return n
}

// Commit appends the buffered records to the detail log and counts them
func (b *Batch) Commit() error {
	if len(b.records) == 0 {
		return nil
	}
	if err := b.ledger.commit(b.records); err != nil {
		return err
	}
	b.records = nil
	return nil
}

// Discard drops the buffered records
func (b *Batch) Discard() {
	b.records = nil
}
