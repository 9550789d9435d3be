package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/funnel-monitor/internal/config"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
)

const (
	kpiPartition = "FUNNEL#KPI"
	sortKeyFmt   = "2006-01-02T15:04:05.000Z"
	kpiTTL       = 90 * 24 * time.Hour
)

// S3API is the subset of the S3 client used by the archive.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DynamoDBAPI is the subset of the DynamoDB client used by the archive.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AWSStorage archives full reports in S3 and KPI rows in DynamoDB.
type AWSStorage struct {
	dynamoDB  DynamoDBAPI
	s3Client  S3API
	tableName string
	bucket    string
	now       func() time.Time
}

// DynamoDBItem represents a KPI row stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// NewAWSStorage creates AWS clients from cfg. Static keys take precedence
// over a named profile; with neither the default credential chain is used.
func NewAWSStorage(ctx context.Context, cfg config.ArchiveConfig) (*AWSStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	switch {
	case cfg.AccessKey != "" && cfg.SecretKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	case cfg.GetAWSProfile() != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.GetAWSProfile()))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewAWSStorageWithClients(dynamodb.NewFromConfig(awsCfg), s3.NewFromConfig(awsCfg), cfg.DynamoDBTable, cfg.S3Bucket), nil
}

// NewAWSStorageWithClients creates an AWSStorage over existing clients.
func NewAWSStorageWithClients(db DynamoDBAPI, s3c S3API, table, bucket string) *AWSStorage {
	return &AWSStorage{dynamoDB: db, s3Client: s3c, tableName: table, bucket: bucket, now: time.Now}
}

func reportKey(id string) string {
	return fmt.Sprintf("reports/%s.json", id)
}

// SaveReport writes the full view to S3.
func (s *AWSStorage) SaveReport(ctx context.Context, v *dashboard.View) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(reportKey(v.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}

// GetReport reads an archived view from S3.
func (s *AWSStorage) GetReport(ctx context.Context, id string) (*dashboard.View, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(reportKey(id)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	var v dashboard.View
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshaling S3 data: %w", err)
	}
	return &v, nil
}

// SaveKPI writes one history row to DynamoDB.
func (s *AWSStorage) SaveKPI(ctx context.Context, rec KPIRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling KPI record: %w", err)
	}

	now := s.now()
	item := DynamoDBItem{
		PK:        kpiPartition,
		SK:        rec.RefreshedAt.UTC().Format(sortKeyFmt),
		Data:      string(data),
		Timestamp: now.UTC().Format(time.RFC3339),
		TTL:       now.Add(kpiTTL).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = s.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// QueryKPIs returns the history rows within [from, to], oldest first,
// following DynamoDB pagination.
func (s *AWSStorage) QueryKPIs(ctx context.Context, from, to time.Time) ([]KPIRecord, error) {
	if to.IsZero() {
		to = s.now()
	}
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: kpiPartition},
			":from": &types.AttributeValueMemberS{Value: from.UTC().Format(sortKeyFmt)},
			":to":   &types.AttributeValueMemberS{Value: to.UTC().Format(sortKeyFmt)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	out := []KPIRecord{}
	for {
		result, err := s.dynamoDB.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("querying DynamoDB: %w", err)
		}
		for _, item := range result.Items {
			var dbItem DynamoDBItem
			if err := attributevalue.UnmarshalMap(item, &dbItem); err != nil {
				continue
			}
			var rec KPIRecord
			if err := json.Unmarshal([]byte(dbItem.Data), &rec); err != nil {
				continue
			}
			out = append(out, rec)
		}
		if len(result.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
