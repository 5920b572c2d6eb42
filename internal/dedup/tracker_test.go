package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/migrate-cli/internal/model"
)

func TestTracker_CaseInsensitiveEmail(t *testing.T) {
	tr := NewTracker("email")

	assert.Nil(t, tr.Check(model.Record{"email": "A@B.com"}, 0))

	issue := tr.Check(model.Record{"email": "a@b.com"}, 1)
	require.NotNil(t, issue)
	assert.Equal(t, model.IssueDuplicate, issue.Kind)
	assert.Equal(t, "email", issue.Field)
	assert.Equal(t, 1, issue.RecordIndex)
	assert.Equal(t, "a@b.com", issue.Value)
	assert.Equal(t, 1, tr.Duplicates())
}

func TestTracker_DefaultKey(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, []string{DefaultKey}, tr.Keys())

	tr = NewTracker(" ", "")
	assert.Equal(t, []string{DefaultKey}, tr.Keys())
}

func TestTracker_SpansBatches(t *testing.T) {
	tr := NewTracker("email")

	batch1 := []model.Record{{"email": "x@y.com"}, {"email": "z@y.com"}}
	batch2 := []model.Record{{"email": " X@Y.COM "}, {"email": "x@y.com"}}

	for i, r := range batch1 {
		assert.Nil(t, tr.Check(r, i))
	}
	for i, r := range batch2 {
		assert.NotNil(t, tr.Check(r, len(batch1)+i))
	}
	assert.Equal(t, 2, tr.Duplicates())
	assert.Equal(t, 2, tr.Seen("email"))
}

func TestTracker_FirstNonEmptyKeyOnly(t *testing.T) {
	tr := NewTracker("email", "phone")

	assert.Nil(t, tr.Check(model.Record{"email": "a@b.com", "phone": "555"}, 0))
	// phone alone is the first non-empty key here and has not been indexed.
	assert.Nil(t, tr.Check(model.Record{"email": "", "phone": "555"}, 1))
	assert.NotNil(t, tr.Check(model.Record{"phone": "555"}, 2))
	// email decides; the repeated phone is never examined.
	assert.Nil(t, tr.Check(model.Record{"email": "new@b.com", "phone": "555"}, 3))

	assert.Equal(t, 1, tr.Duplicates())
}

func TestTracker_SkipsEmptyValues(t *testing.T) {
	tr := NewTracker("email")

	for i := 0; i < 3; i++ {
		assert.Nil(t, tr.Check(model.Record{"email": ""}, i))
		assert.Nil(t, tr.Check(model.Record{"email": nil}, i))
		assert.Nil(t, tr.Check(model.Record{"email": "   "}, i))
		assert.Nil(t, tr.Check(model.Record{}, i))
	}
	assert.Zero(t, tr.Duplicates())
}

func TestTracker_NonStringValues(t *testing.T) {
	tr := NewTracker("external_id")

	assert.Nil(t, tr.Check(model.Record{"external_id": 42}, 0))
	assert.NotNil(t, tr.Check(model.Record{"external_id": "42"}, 1))
}
