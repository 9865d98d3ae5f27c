package services

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AttachmentMarker is the attachment-cleanup collaborator: called when a
// message's attachment list shrinks, best-effort from the caller's side.
type AttachmentMarker interface {
	MarkForDeletion(ctx context.Context, fileID string) error
}

// AttachmentService marks S3-backed attachments for deletion.
type AttachmentService struct {
	Client *s3.Client
	Bucket string
}

// InitializeS3Client initializes the S3 client
func InitializeS3Client(region string) *s3.Client {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return s3.NewFromConfig(cfg)
}

// MarkForDeletion tags the object so the bucket's lifecycle rule expires it.
// The object itself is untouched until the rule runs.
func (s *AttachmentService) MarkForDeletion(ctx context.Context, fileID string) error {
	_, err := s.Client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(fileID),
		Tagging: &s3types.Tagging{
			TagSet: []s3types.Tag{
				{Key: aws.String("status"), Value: aws.String("pending-deletion")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to mark attachment '%s' for deletion: %w", fileID, err)
	}
	log.Printf("🗑️ Attachment %s marked for deletion", fileID)
	return nil
}
