package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"medrefBack/internal/models"
)

// S3Archive writes committed reconciliation batches to an S3-compatible
// bucket for audit. Credentials come from the environment.
type S3Archive struct {
	Bucket   string
	Folder   string
	client   *s3.S3
	disabled bool
}

func NewS3Archive(bucket, folder, region, endpoint string) *S3Archive {
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	if accessKey == "" || secretKey == "" || bucket == "" {
		return &S3Archive{disabled: true}
	}
	sess := session.Must(session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Endpoint:    aws.String(endpoint),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
	}))
	return &S3Archive{
		Bucket: bucket,
		Folder: folder,
		client: s3.New(sess),
	}
}

func (a *S3Archive) ArchiveBatch(ctx context.Context, batchID string, result models.CommitResult) error {
	if a.disabled {
		return nil
	}
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s/%s.json", a.Folder, batchID)
	_, err = a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("unable to archive batch to S3: %v", err)
	}
	return nil
}
