package etl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestChunked(t *testing.T) {
	write := mongo.NewReplaceOneModel().SetFilter(bson.M{}).SetUpsert(true)

	cases := []struct {
		total int
		size  int
		want  []int
	}{
		{0, 10, nil},
		{3, 10, []int{3}},
		{10, 10, []int{10}},
		{25, 10, []int{10, 10, 5}},
		{5, 1, []int{1, 1, 1, 1, 1}},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_by_%d", tc.total, tc.size), func(t *testing.T) {
			writes := make([]mongo.WriteModel, tc.total)
			for i := range writes {
				writes[i] = write
			}

			var sizes []int
			for chunk := range chunked(writes, tc.size) {
				sizes = append(sizes, len(chunk))
			}
			assert.Equal(t, tc.want, sizes)
		})
	}
}

func TestApplyBulkWriteErrorPartial(t *testing.T) {
	result := NewResult()

	err := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 2, Code: 11000, Message: "E11000 duplicate key"}},
		},
	}

	applyBulkWriteError(result, err, 10)

	assert.Equal(t, 9, result.SuccessCount, "acknowledged documents still count")
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "duplicate key")
}

func TestApplyBulkWriteErrorWholeChunkLost(t *testing.T) {
	result := NewResult()

	applyBulkWriteError(result, fmt.Errorf("connection reset by peer"), 7)

	assert.Zero(t, result.SuccessCount)
	assert.Equal(t, 7, result.ErrorCount)
	require.Len(t, result.Errors, 1, "one synthesized message, not one per document")
	assert.Contains(t, result.Errors[0], "7 documents")
}

func TestApplyBulkWriteErrorWriteConcern(t *testing.T) {
	result := NewResult()

	err := mongo.BulkWriteException{
		WriteConcernError: &mongo.WriteConcernError{Message: "waiting for replication timed out"},
	}

	applyBulkWriteError(result, err, 5)

	assert.Equal(t, 5, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
}

func TestIsIndexExistsError(t *testing.T) {
	assert.True(t, isIndexExistsError(mongo.CommandError{Code: 85}))
	assert.True(t, isIndexExistsError(mongo.CommandError{Code: 86}))
	assert.True(t, isIndexExistsError(fmt.Errorf("index already exists with a different name")))
	assert.False(t, isIndexExistsError(mongo.CommandError{Code: 13, Message: "unauthorized"}))
	assert.False(t, isIndexExistsError(fmt.Errorf("network timeout")))
}

func TestProductIndexesIncludeUniqueProductID(t *testing.T) {
	indexes := productIndexes()
	require.NotEmpty(t, indexes)

	found := false
	for _, idx := range indexes {
		keys, ok := idx.Keys.(bson.D)
		if !ok || len(keys) != 1 || keys[0].Key != "product_id" {
			continue
		}
		if idx.Options != nil && idx.Options.Unique != nil && *idx.Options.Unique {
			found = true
		}
	}
	assert.True(t, found, "product_id must carry a unique index")
}
