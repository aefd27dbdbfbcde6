package kbsync

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v81/github"
)

// PullResult summarizes one pull of the knowledge repository.
type PullResult struct {
	Categories int
	Documents  int
	CommitSHA  string
}

// Puller downloads the two-level category/document tree from a GitHub
// repository into a local knowledge root, mirroring the layout the ingestion
// pipeline expects.
type Puller struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	logger   *slog.Logger
}

// NewPuller creates a puller for the knowledge repository. basePath is the
// directory within the repo that holds the category directories ("" for the
// repo root).
func NewPuller(client *Client, owner, repo, basePath string, logger *slog.Logger) *Puller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Puller{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
		logger:   logger,
	}
}

// Pull downloads every category directory and its documents into destRoot,
// overwriting files that already exist. Non-document files are ignored.
func (p *Puller) Pull(ctx context.Context, destRoot string) (*PullResult, error) {
	result := &PullResult{}

	sha, err := p.latestCommitSHA(ctx)
	if err != nil {
		return nil, err
	}
	result.CommitSHA = sha
	p.logger.Info("Pulling knowledge base", "repo", p.owner+"/"+p.repo, "commit", sha)

	_, dirContents, _, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, p.basePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", p.basePath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil || *item.Type != "dir" {
			continue
		}
		category := *item.Name
		docs, err := p.pullCategory(ctx, category, destRoot)
		if err != nil {
			return nil, err
		}
		result.Categories++
		result.Documents += docs
	}

	return result, nil
}

// pullCategory downloads one category directory. Returns the document count.
func (p *Puller) pullCategory(ctx context.Context, category, destRoot string) (int, error) {
	dir := filepath.Join(destRoot, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating category directory: %w", err)
	}

	fullPath := path.Join(p.basePath, category)
	_, dirContents, _, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, fullPath, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	count := 0
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil || *item.Type != "file" {
			continue
		}
		name := *item.Name
		ext := strings.ToLower(path.Ext(name))
		if ext != ".md" && ext != ".txt" {
			continue
		}

		content, err := p.fetchFile(ctx, path.Join(fullPath, name))
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			return 0, fmt.Errorf("writing %s/%s: %w", category, name, err)
		}
		p.logger.Debug("Pulled document", "category", category, "source", name)
		count++
	}
	return count, nil
}

// fetchFile downloads and decodes one file's content.
func (p *Puller) fetchFile(ctx context.Context, fullPath string) ([]byte, error) {
	fileContent, _, _, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}
	return content, nil
}

// latestCommitSHA returns the SHA of the most recent commit touching the
// knowledge directory.
func (p *Puller) latestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := p.client.Repositories.ListCommits(ctx, p.owner, p.repo,
		&github.CommitsListOptions{
			Path:        p.basePath,
			ListOptions: github.ListOptions{PerPage: 1},
		})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", p.basePath)
	}
	return *commits[0].SHA, nil
}
