package storage

import (
	"bytes"
	"context"
	"fmt"

	"foodgram/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type (
	AwsS3 interface {
		UploadImage(ctx context.Context, folder string, data []byte, contentType string) (string, error)
	}

	awsS3 struct {
		client *s3.Client
		bucket string
		region string
	}
)

func NewAwsS3() AwsS3 {
	region := utils.GetConfig("AWS_S3_REGION")
	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			utils.GetConfig("AWS_ACCESS_KEY"),
			utils.GetConfig("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		log.Fatalf("error loading AWS config: %v", err)
	}

	return &awsS3{
		client: s3.NewFromConfig(cfg),
		bucket: utils.GetConfig("AWS_S3_BUCKET"),
		region: region,
	}
}

func (s *awsS3) UploadImage(ctx context.Context, folder string, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
