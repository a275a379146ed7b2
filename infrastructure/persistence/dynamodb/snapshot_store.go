package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

const snapshotSK = "SNAPSHOT"

// snapshotItem is the DynamoDB item for one ontology. The full snapshot is
// kept as a JSON document; revision and label live in their own attributes
// so they can be updated without rewriting the body.
type snapshotItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	IRI       string `dynamodbav:"IRI"`
	Label     string `dynamodbav:"Label"`
	Revision  int64  `dynamodbav:"Revision"`
	SavedAt   string `dynamodbav:"SavedAt"`
	SavedBy   string `dynamodbav:"SavedBy,omitempty"`
	NodeCount int    `dynamodbav:"NodeCount"`
	EdgeCount int    `dynamodbav:"EdgeCount"`
	Body      string `dynamodbav:"Body"`
}

// SnapshotStore implements ports.SnapshotStore on a single DynamoDB table
type SnapshotStore struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewSnapshotStore creates a DynamoDB-backed snapshot store
func NewSnapshotStore(client API, tableName string, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

func key(iri valueobjects.OntologyIRI) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "ONTOLOGY#" + iri.String()},
		"SK": &types.AttributeValueMemberS{Value: snapshotSK},
	}
}

// Save writes the snapshot and bumps the stored revision in one update. The
// write always lands; Conflict reports that the stored revision was not the
// one the caller based its edits on.
func (s *SnapshotStore) Save(ctx context.Context, snapshot aggregates.Snapshot) (ports.SaveResult, error) {
	if snapshot.OntologyIRI.IsZero() {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot has no ontology IRI")
	}
	if snapshot.SavedAt.IsZero() {
		snapshot.SavedAt = s.now().UTC()
	}
	body, err := snapshot.Encode()
	if err != nil {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot cannot be encoded").WithCause(err)
	}

	update := expression.
		Set(expression.Name("IRI"), expression.Value(snapshot.OntologyIRI.String())).
		Set(expression.Name("Label"), expression.Value(snapshot.Label)).
		Set(expression.Name("SavedAt"), expression.Value(snapshot.SavedAt.Format(time.RFC3339Nano))).
		Set(expression.Name("SavedBy"), expression.Value(snapshot.SavedBy)).
		Set(expression.Name("NodeCount"), expression.Value(len(snapshot.Nodes))).
		Set(expression.Name("EdgeCount"), expression.Value(len(snapshot.Edges))).
		Set(expression.Name("Body"), expression.Value(string(body))).
		Add(expression.Name("Revision"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return ports.SaveResult{}, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(snapshot.OntologyIRI),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		s.logger.Error("Failed to save snapshot to DynamoDB",
			zap.String("iri", snapshot.OntologyIRI.String()),
			zap.Error(err),
		)
		return ports.SaveResult{}, mapError(err, "save snapshot")
	}

	revision, err := revisionOf(out.Attributes)
	if err != nil {
		return ports.SaveResult{}, pkgerrors.NewDatabaseError("read revision", err)
	}
	result := ports.SaveResult{
		Revision: revision,
		Conflict: revision-1 != snapshot.Revision,
	}

	s.logger.Debug("Saved snapshot to DynamoDB",
		zap.String("iri", snapshot.OntologyIRI.String()),
		zap.Int64("revision", result.Revision),
		zap.Bool("conflict", result.Conflict),
		zap.Int("nodes", len(snapshot.Nodes)),
		zap.Int("edges", len(snapshot.Edges)),
	)
	return result, nil
}

// Load returns the stored snapshot with the item's revision and label
func (s *SnapshotStore) Load(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(iri),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return aggregates.Snapshot{}, mapError(err, "load snapshot")
	}
	if len(out.Item) == 0 {
		return aggregates.Snapshot{}, pkgerrors.NewNotFoundError("ontology " + iri.String())
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return aggregates.Snapshot{}, pkgerrors.NewDatabaseError("unmarshal snapshot", err)
	}
	snapshot, err := aggregates.DecodeSnapshot([]byte(item.Body))
	if err != nil {
		return aggregates.Snapshot{}, err
	}
	snapshot.Revision = item.Revision
	snapshot.Label = item.Label
	return snapshot, nil
}

// Rename updates the label attribute of an existing ontology
func (s *SnapshotStore) Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) error {
	update := expression.Set(expression.Name("Label"), expression.Value(label))
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build rename expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(iri),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var conditionalCheckFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionalCheckFailed) {
		return pkgerrors.NewNotFoundError("ontology " + iri.String())
	}
	if err != nil {
		return mapError(err, "rename ontology")
	}
	return nil
}

// Delete removes the ontology item. Deleting a missing ontology succeeds.
func (s *SnapshotStore) Delete(ctx context.Context, iri valueobjects.OntologyIRI) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(iri),
	})
	if err != nil {
		return mapError(err, "delete ontology")
	}
	return nil
}

func revisionOf(attrs map[string]types.AttributeValue) (int64, error) {
	n, ok := attrs["Revision"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("update returned no revision")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

// mapError classifies DynamoDB API errors so callers can decide on retries
func mapError(err error, operation string) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewDatabaseError(operation, err)
	}
	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException", "InternalServerError", "ServiceUnavailable":
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err)
	case "ResourceNotFoundException":
		return pkgerrors.NewInternalError("snapshot table is missing").WithCause(err)
	case "ValidationException", "ItemCollectionSizeLimitExceededException":
		return pkgerrors.NewValidationError(ae.ErrorMessage()).WithCause(err)
	default:
		return pkgerrors.NewDatabaseError(operation, err)
	}
}
