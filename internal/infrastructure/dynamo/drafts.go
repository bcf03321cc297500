package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/edudash-core/internal/domain"
)

// DraftRepo stores unsaved alignment working copies so an interrupted edit
// session can be resumed after a restart.
type DraftRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDraftRepo(client *dynamodb.Client, tableName string) *DraftRepo {
	return &DraftRepo{client: client, tableName: tableName}
}

func (r *DraftRepo) Put(ctx context.Context, d *domain.AlignmentDraft) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *DraftRepo) Get(ctx context.Context, certificateID string) (*domain.AlignmentDraft, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("certificate_id", certificateID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("draft for %s: %w", certificateID, domain.ErrNotFound)
	}
	var d domain.AlignmentDraft
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Update applies a partial update to an existing draft row.
func (r *DraftRepo) Update(ctx context.Context, certificateID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("certificate_id", certificateID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// Delete removes a draft once its config has been saved upstream. Deleting a
// missing draft is not an error.
func (r *DraftRepo) Delete(ctx context.Context, certificateID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("certificate_id", certificateID),
	})
	return err
}
