package dynamodb

import (
	"context"
	"testing"
	"time"

	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testIRI = valueobjects.OntologyIRI("http://example.org/vehicles")

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func snapshot(revision int64) aggregates.Snapshot {
	s := aggregates.EmptySnapshot(testIRI, "Vehicles")
	s.Revision = revision
	s.SavedAt = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.Nodes = []entities.NodeRecord{
		{ID: valueobjects.MustElementID("vehicle"), Type: entities.NodeKindClass, Label: "Vehicle", Position: valueobjects.MustPosition(100, 100)},
	}
	return s
}

func updatedRevision(n string) *dynamodb.UpdateItemOutput {
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"Revision": &types.AttributeValueMemberN{Value: n},
	}}
}

func TestSnapshotStore_Save(t *testing.T) {
	tests := []struct {
		name         string
		base         int64
		stored       string
		wantRevision int64
		wantConflict bool
	}{
		{name: "first save", base: 0, stored: "1", wantRevision: 1},
		{name: "in sequence", base: 4, stored: "5", wantRevision: 5},
		{name: "someone else saved", base: 2, stored: "5", wantRevision: 5, wantConflict: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			api := &mockAPI{}
			api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
				pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
				return aws.ToString(in.TableName) == "ontograph" &&
					pk == "ONTOLOGY#"+testIRI.String() &&
					in.ReturnValues == types.ReturnValueUpdatedNew
			})).Return(updatedRevision(tt.stored), nil)
			store := NewSnapshotStore(api, "ontograph", zap.NewNop())

			// Act
			result, err := store.Save(context.Background(), snapshot(tt.base))

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantConflict, result.Conflict)
			assert.Equal(t, tt.wantRevision, result.Revision)
			api.AssertExpectations(t)
		})
	}
}

func TestSnapshotStore_SaveRejectsMissingIRI(t *testing.T) {
	store := NewSnapshotStore(&mockAPI{}, "ontograph", zap.NewNop())

	_, err := store.Save(context.Background(), aggregates.Snapshot{})

	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSnapshotStore_SaveThrottledIsRetryable(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"})
	store := NewSnapshotStore(api, "ontograph", zap.NewNop())

	_, err := store.Save(context.Background(), snapshot(0))

	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestSnapshotStore_Load(t *testing.T) {
	// Arrange
	stored := snapshot(0)
	body, err := stored.Encode()
	require.NoError(t, err)
	item, err := attributevalue.MarshalMap(snapshotItem{
		PK: "ONTOLOGY#" + testIRI.String(), SK: snapshotSK, IRI: testIRI.String(),
		Label: "Renamed", Revision: 9, Body: string(body),
	})
	require.NoError(t, err)
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: item}, nil)
	store := NewSnapshotStore(api, "ontograph", zap.NewNop())

	// Act
	got, err := store.Load(context.Background(), testIRI)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Revision)
	assert.Equal(t, "Renamed", got.Label)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "Vehicle", got.Nodes[0].Label)
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)
	store := NewSnapshotStore(api, "ontograph", zap.NewNop())

	_, err := store.Load(context.Background(), testIRI)

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSnapshotStore_RenameMissingIsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return in.ConditionExpression != nil
	})).Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")})
	store := NewSnapshotStore(api, "ontograph", zap.NewNop())

	err := store.Rename(context.Background(), testIRI, "Cars")

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSnapshotStore_Delete(t *testing.T) {
	api := &mockAPI{}
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil)
	store := NewSnapshotStore(api, "ontograph", zap.NewNop())

	require.NoError(t, store.Delete(context.Background(), testIRI))
	api.AssertNumberOfCalls(t, "DeleteItem", 1)
}
