package service

import (
	"context"
	"fmt"
	"log"

	"dataforge/internal/registry"
)

// PublishService orchestrates the registry calls needed to publish a
// converted dataset: ensure the repository exists, upload the data files,
// then upload the dataset card.
type PublishService struct {
	client registry.Client
}

// NewPublishService creates a PublishService.
func NewPublishService(client registry.Client) *PublishService {
	return &PublishService{client: client}
}

// Publish pushes the dataset directory and optional card to the registry and
// returns the repository URL. Failures are returned as-is; files uploaded
// before a failure stay in place.
func (s *PublishService) Publish(ctx context.Context, localDir, repoID string, private bool, cardPath, commitMessage string) (string, error) {
	if commitMessage == "" {
		commitMessage = "Upload dataset"
	}

	repoURL, err := s.client.CreateRepo(ctx, repoID, private, true)
	if err != nil {
		return "", fmt.Errorf("failed to create dataset repository: %w", err)
	}

	if err := s.client.Upload(ctx, localDir, repoID, commitMessage); err != nil {
		return "", fmt.Errorf("failed to upload dataset: %w", err)
	}

	if cardPath != "" {
		if err := s.client.UpdateCard(ctx, repoID, cardPath, "Update dataset card"); err != nil {
			return "", fmt.Errorf("failed to upload dataset card: %w", err)
		}
	}

	log.Printf("Dataset published to %s", repoURL)
	return repoURL, nil
}
