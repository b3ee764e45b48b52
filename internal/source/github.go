// Package source loads documents for ingestion from a local directory or
// a GitHub repository.
package source

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"

	"github.com/stackdocs/docrag/internal/storage"
)

// GitHubSource fetches text documents from a repository directory.
type GitHubSource struct {
	client   *github.Client
	owner    string
	repo     string
	basePath string
}

// NewGitHubSource creates a source for owner/repo rooted at basePath.
// If GITHUB_TOKEN is set the client authenticates for higher rate limits;
// rate limit responses are handled with automatic backoff either way.
func NewGitHubSource(owner, repo, basePath string) (*GitHubSource, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}

	return &GitHubSource{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
	}, nil
}

// List returns the relative paths of all ingestible files under basePath.
func (s *GitHubSource) List(ctx context.Context) ([]string, error) {
	return s.listRecursive(ctx, s.basePath, "")
}

func (s *GitHubSource) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var paths []string

	_, dirContents, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}
		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if ingestibleExt(*item.Name) {
				paths = append(paths, itemRelPath)
			}
		case "dir":
			sub, err := s.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			paths = append(paths, sub...)
		}
	}
	return paths, nil
}

// Fetch loads one file as a Document. The document ID is left empty for
// the pipeline to assign.
func (s *GitHubSource) Fetch(ctx context.Context, relativePath string) (*storage.Document, error) {
	fullPath := path.Join(s.basePath, relativePath)

	fileContent, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", fullPath, err)
	}

	return &storage.Document{
		SourcePath: relativePath,
		Content:    string(content),
		Metadata: map[string]string{
			"repository": s.owner + "/" + s.repo,
			"sha":        fileContent.GetSHA(),
		},
	}, nil
}

// FetchAll lists and fetches every ingestible document.
func (s *GitHubSource) FetchAll(ctx context.Context) ([]*storage.Document, error) {
	paths, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]*storage.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := s.Fetch(ctx, p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ingestibleExt reports whether a filename looks like a text document.
func ingestibleExt(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") ||
		strings.HasSuffix(lower, ".markdown") ||
		strings.HasSuffix(lower, ".txt")
}
