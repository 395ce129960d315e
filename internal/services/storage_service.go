// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/models"
)

// StorageService archives investment certificates to S3. When AWS
// credentials are not configured it degrades to logging, which keeps local
// development free of cloud dependencies.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		return &StorageService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// StoreCertificate renders an ownership certificate for an activated
// investment and uploads it. Returns the object key.
func (s *StorageService) StoreCertificate(ctx context.Context, investment *models.Investment) (string, error) {
	certificate := map[string]interface{}{
		"certificate_version": 1,
		"investment_id":       investment.ID.String(),
		"user_id":             investment.UserID.String(),
		"tree_id":             investment.TreeID.String(),
		"amount":              investment.Amount,
		"currency":            investment.Currency,
		"issued_at":           time.Now().UTC().Format(time.RFC3339),
	}
	if investment.PurchasedAt != nil {
		certificate["purchased_at"] = investment.PurchasedAt.UTC().Format(time.RFC3339)
	}

	document, err := json.MarshalIndent(certificate, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render certificate: %w", err)
	}

	key := fmt.Sprintf("certificates/%s/%s.json", investment.UserID, investment.ID)

	if s.s3Client == nil {
		logrus.WithField("key", key).Info("Certificate upload skipped (S3 not configured)")
		return key, nil
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(document),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(document))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload certificate to S3: %w", err)
	}

	return key, nil
}

// GeneratePresignedURL creates a time-limited download link for a stored
// certificate.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 client not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

// DeleteCertificate removes a stored certificate, used when an activation is
// rolled back by support staff.
func (s *StorageService) DeleteCertificate(key string) error {
	if s.s3Client == nil {
		logrus.WithField("key", key).Info("Certificate deletion skipped (S3 not configured)")
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete certificate from S3: %w", err)
	}

	return nil
}
