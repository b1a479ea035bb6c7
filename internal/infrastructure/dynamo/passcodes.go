package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-recovery-api/internal/domain"
)

// PasscodeRepo provides typed DynamoDB operations for the passcodes table.
// PK: token. The `address-purpose-index` GSI (address HASH, purpose RANGE)
// backs the per-pair queries and purges.
//
// The attempts counter and used_at flag are written with atomic/conditional
// updates so concurrent verification attempts on one token never lose an
// increment and at most one of them can consume the record.
type PasscodeRepo struct {
	client    passcodeAPI
	tableName string
}

// passcodeAPI is the slice of the DynamoDB client the repo uses. Satisfied by
// *dynamodb.Client.
type passcodeAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

func NewPasscodeRepo(client *dynamodb.Client, tableName string) *PasscodeRepo {
	return &PasscodeRepo{client: client, tableName: tableName}
}

func (r *PasscodeRepo) Save(ctx context.Context, p *domain.Passcode) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal passcode: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PasscodeRepo) FindByToken(ctx context.Context, token string) (*domain.Passcode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("token", token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	var p domain.Passcode
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PasscodeRepo) FindUnusedByAddressAndPurpose(ctx context.Context, address, purpose string) ([]domain.Passcode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("address-purpose-index"),
		KeyConditionExpression: aws.String("address = :a AND purpose = :p"),
		FilterExpression:       aws.String("attribute_not_exists(used_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: address},
			":p": &types.AttributeValueMemberS{Value: purpose},
		},
	})
	if err != nil {
		return nil, err
	}
	var ps []domain.Passcode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// IncrementAttempts adds 1 to the attempts counter and returns the new count.
// ADD is atomic on the DynamoDB side, so concurrent wrong guesses all count.
func (r *PasscodeRepo) IncrementAttempts(ctx context.Context, token string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token", token),
		UpdateExpression:    aws.String("ADD attempts :one"),
		ConditionExpression: aws.String("attribute_exists(#t)"),
		ExpressionAttributeNames: map[string]string{"#t": "token"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return 0, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
		}
		return 0, err
	}
	n, ok := out.Attributes["attempts"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("unexpected attempts attribute")
	}
	count, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parse attempts: %w", err)
	}
	return count, nil
}

// MarkUsed consumes the record: it sets used_at only when the attribute is
// still absent. The loser of a double-submit race gets domain.ErrConflict.
func (r *PasscodeRepo) MarkUsed(ctx context.Context, token string, at time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token", token),
		UpdateExpression:    aws.String("SET used_at = :t"),
		ConditionExpression: aws.String("attribute_exists(#t) AND attribute_not_exists(used_at)"),
		ExpressionAttributeNames: map[string]string{"#t": "token"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
		},
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("passcode already consumed: %w", domain.ErrConflict)
	}
	return err
}

func (r *PasscodeRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	return err
}

func (r *PasscodeRepo) DeleteByAddressAndPurpose(ctx context.Context, address, purpose string) (int, error) {
	ps, err := r.queryAllByAddressAndPurpose(ctx, address, purpose)
	if err != nil {
		return 0, err
	}
	for _, p := range ps {
		if err := r.DeleteByToken(ctx, p.Token); err != nil {
			return 0, err
		}
	}
	return len(ps), nil
}

// DeleteExpiredBefore purges every record whose expiry precedes t. Deletes
// are conditional on the expiry still being in the past, so redundant sweeps
// racing each other (or racing a reissue) stay safe; losing a race is not an
// error. DynamoDB TTL eviction on expires_at eventually removes stragglers.
func (r *PasscodeRepo) DeleteExpiredBefore(ctx context.Context, t time.Time) (int, error) {
	cutoff := strconv.FormatInt(t.Unix(), 10)
	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(r.tableName),
			FilterExpression:         aws.String("expires_at < :t"),
			ProjectionExpression:     aws.String("#t"),
			ExpressionAttributeNames: map[string]string{"#t": "token"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberN{Value: cutoff},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return deleted, err
		}
		for _, item := range out.Items {
			tok, ok := item["token"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:           aws.String(r.tableName),
				Key:                 strKey("token", tok.Value),
				ConditionExpression: aws.String("expires_at < :t"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":t": &types.AttributeValueMemberN{Value: cutoff},
				},
			})
			if err != nil {
				if isConditionalCheckFailed(err) {
					continue
				}
				return deleted, err
			}
			deleted++
		}
		if len(out.LastEvaluatedKey) == 0 {
			return deleted, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *PasscodeRepo) queryAllByAddressAndPurpose(ctx context.Context, address, purpose string) ([]domain.Passcode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("address-purpose-index"),
		KeyConditionExpression: aws.String("address = :a AND purpose = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: address},
			":p": &types.AttributeValueMemberS{Value: purpose},
		},
	})
	if err != nil {
		return nil, err
	}
	var ps []domain.Passcode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
