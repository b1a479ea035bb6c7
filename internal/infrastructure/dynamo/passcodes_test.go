package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-recovery-api/internal/domain"
)

// fakePasscodeAPI scripts Scan pages and records DeleteItem calls.
type fakePasscodeAPI struct {
	scanPages []*dynamodb.ScanOutput
	scanCalls []*dynamodb.ScanInput
	deleted   []string
	deleteErr error
}

func (f *fakePasscodeAPI) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakePasscodeAPI) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakePasscodeAPI) UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakePasscodeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	tok := in.Key["token"].(*types.AttributeValueMemberS)
	f.deleted = append(f.deleted, tok.Value)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakePasscodeAPI) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakePasscodeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanCalls = append(f.scanCalls, in)
	out := f.scanPages[0]
	f.scanPages = f.scanPages[1:]
	return out, nil
}

func tokenItem(tok string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"token": &types.AttributeValueMemberS{Value: tok},
	}
}

func TestDeleteExpiredBefore_FollowsScanPagination(t *testing.T) {
	api := &fakePasscodeAPI{
		scanPages: []*dynamodb.ScanOutput{
			{
				Items:            []map[string]types.AttributeValue{tokenItem("tok-1"), tokenItem("tok-2")},
				LastEvaluatedKey: tokenItem("tok-2"),
			},
			{
				Items: []map[string]types.AttributeValue{tokenItem("tok-3")},
			},
		},
	}
	repo := &PasscodeRepo{client: api, tableName: "passcodes"}

	n, err := repo.DeleteExpiredBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"tok-1", "tok-2", "tok-3"}, api.deleted)

	// The second scan resumes from the first page's last key.
	require.Len(t, api.scanCalls, 2)
	assert.Nil(t, api.scanCalls[0].ExclusiveStartKey)
	assert.Equal(t, tokenItem("tok-2"), api.scanCalls[1].ExclusiveStartKey)
}

func TestDeleteExpiredBefore_LostRaceIsNotAnError(t *testing.T) {
	api := &fakePasscodeAPI{
		scanPages: []*dynamodb.ScanOutput{
			{Items: []map[string]types.AttributeValue{tokenItem("tok-1")}},
		},
		deleteErr: &types.ConditionalCheckFailedException{},
	}
	repo := &PasscodeRepo{client: api, tableName: "passcodes"}

	n, err := repo.DeleteExpiredBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMarkUsed_ConditionFailureMapsToConflict(t *testing.T) {
	api := &fakePasscodeAPI{}
	repo := &PasscodeRepo{client: api, tableName: "passcodes"}
	require.NoError(t, repo.MarkUsed(context.Background(), "tok-1", time.Now()))

	ccfAPI := &condFailAPI{}
	repo = &PasscodeRepo{client: ccfAPI, tableName: "passcodes"}
	err := repo.MarkUsed(context.Background(), "tok-1", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

// condFailAPI fails every conditional write.
type condFailAPI struct{ fakePasscodeAPI }

func (f *condFailAPI) UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return nil, &types.ConditionalCheckFailedException{}
}
