package storage

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/funnel-monitor/internal/config"
	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
)

var base = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(context.Background(), config.ArchiveConfig{Type: "local", LocalPath: dir})
	require.NoError(t, err)
	return s, dir
}

func view(id string, gen uint64, at time.Time, paid int) *dashboard.View {
	return &dashboard.View{
		ID:          id,
		Generation:  gen,
		RefreshedAt: at,
		Report:      &funnel.Report{Counts: funnel.Counts{PaidTotal: paid}},
		Warnings:    []dashboard.Warning{},
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), config.ArchiveConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestLocal_SaveAndHistory(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	assert.Equal(t, "local", s.Type())

	require.NoError(t, s.SaveView(ctx, view("b", 2, base.Add(time.Hour), 20)))
	require.NoError(t, s.SaveView(ctx, view("a", 1, base, 10)))
	require.NoError(t, s.SaveView(ctx, view("c", 3, base.Add(48*time.Hour), 30)))

	all, err := s.History(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ViewID, "oldest first")
	assert.Equal(t, 10, all[0].Counts.PaidTotal)

	window, err := s.History(ctx, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "b", window[1].ViewID)

	empty, err := s.History(ctx, base.Add(100*time.Hour), time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLocal_Report(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveView(ctx, view("r1", 4, base, 7)))

	got, err := s.Report(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.Generation)
	assert.Equal(t, 7, got.Report.Counts.PaidTotal)

	_, err = s.Report(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_HistorySurvivesRestart(t *testing.T) {
	s, dir := newTestStorage(t)
	require.NoError(t, s.SaveView(context.Background(), view("a", 1, base, 10)))

	reopened, err := New(context.Background(), config.ArchiveConfig{Type: "local", LocalPath: dir})
	require.NoError(t, err)
	got, err := reopened.History(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ViewID)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

// fakeDynamo keeps items in insertion order and serves queries one item
// per page to exercise pagination.
type fakeDynamo struct {
	mu    sync.Mutex
	items []map[string]types.AttributeValue
	fail  error
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	vals := in.ExpressionAttributeValues
	from := vals[":from"].(*types.AttributeValueMemberS).Value
	to := vals[":to"].(*types.AttributeValueMemberS).Value
	start := 0
	if in.ExclusiveStartKey != nil {
		last, err := strconv.Atoi(in.ExclusiveStartKey["idx"].(*types.AttributeValueMemberN).Value)
		if err != nil {
			return nil, err
		}
		start = last + 1
	}
	for i := start; i < len(f.items); i++ {
		var item DynamoDBItem
		if err := attributevalue.UnmarshalMap(f.items[i], &item); err != nil {
			return nil, err
		}
		if item.SK < from || item.SK > to {
			continue
		}
		return &dynamodb.QueryOutput{
			Items:            []map[string]types.AttributeValue{f.items[i]},
			LastEvaluatedKey: map[string]types.AttributeValue{"idx": &types.AttributeValueMemberN{Value: strconv.Itoa(i)}},
		}, nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func newAWSTestStorage() (*Storage, *fakeS3, *fakeDynamo) {
	s3c := &fakeS3{objects: map[string][]byte{}}
	db := &fakeDynamo{}
	a := NewAWSStorageWithClients(db, s3c, "funnel-kpis", "funnel-archive")
	a.now = func() time.Time { return base.Add(72 * time.Hour) }
	return NewWithAWS(a), s3c, db
}

func TestAWS_SaveViewWritesReportAndKPI(t *testing.T) {
	s, s3c, db := newAWSTestStorage()
	ctx := context.Background()

	require.NoError(t, s.SaveView(ctx, view("v1", 1, base, 5)))

	assert.Contains(t, s3c.objects, "reports/v1.json")
	require.Len(t, db.items, 1)

	var item DynamoDBItem
	require.NoError(t, attributevalue.UnmarshalMap(db.items[0], &item))
	assert.Equal(t, kpiPartition, item.PK)
	assert.Equal(t, "2024-06-15T12:00:00.000Z", item.SK)
	assert.Equal(t, base.Add(72*time.Hour+kpiTTL).Unix(), item.TTL)

	got, err := s.Report(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Report.Counts.PaidTotal)

	_, err = s.Report(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAWS_HistoryFollowsPages(t *testing.T) {
	s, _, _ := newAWSTestStorage()
	ctx := context.Background()

	require.NoError(t, s.SaveView(ctx, view("a", 1, base, 1)))
	require.NoError(t, s.SaveView(ctx, view("b", 2, base.Add(time.Hour), 2)))
	require.NoError(t, s.SaveView(ctx, view("c", 3, base.Add(30*time.Hour), 3)))

	got, err := s.History(ctx, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ViewID)
	assert.Equal(t, "b", got[1].ViewID)

	all, err := s.History(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAWS_HistoryError(t *testing.T) {
	s, _, db := newAWSTestStorage()
	db.fail = errors.New("throttled")

	_, err := s.History(context.Background(), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "throttled")
}
