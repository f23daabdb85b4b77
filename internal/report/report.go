// Package report publishes deployment-readiness decisions back to GitHub
// as commit statuses, so the gate outcome shows up on the pull request
// that asked for it.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/config"
	"github.com/fyrsmithlabs/readygate/internal/workflow"
)

// RepositoriesService is the go-github surface the publisher uses.
type RepositoriesService interface {
	CreateStatus(ctx context.Context, owner, repo, ref string, status *github.RepoStatus) (*github.RepoStatus, *github.Response, error)
}

// StatusPublisher posts one commit status per finished run.
type StatusPublisher struct {
	repos   RepositoriesService
	context string
	logger  *zap.Logger
}

// New builds a publisher with an authenticated GitHub client.
func New(ctx context.Context, cfg config.ReportConfig, logger *zap.Logger) (*StatusPublisher, error) {
	if !cfg.Token.IsSet() {
		return nil, fmt.Errorf("github token not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return NewWithService(github.NewClient(tc).Repositories, cfg.Context, logger), nil
}

// NewWithService builds a publisher on an existing service, for tests.
func NewWithService(repos RepositoriesService, statusContext string, logger *zap.Logger) *StatusPublisher {
	if statusContext == "" {
		statusContext = "readygate/deployment-readiness"
	}
	return &StatusPublisher{repos: repos, context: statusContext, logger: logger}
}

// Publish posts the run outcome as a commit status. Targets that do not
// name a commit (owner/repo@sha) are skipped: not every assessed target
// is a GitHub ref.
func (p *StatusPublisher) Publish(ctx context.Context, report *workflow.Report) error {
	owner, repo, ref, ok := parseTarget(report.Target)
	if !ok {
		p.logger.Debug("target is not a github ref, skipping status",
			zap.String("target", report.Target))
		return nil
	}

	state, description := statusFor(report)
	status := &github.RepoStatus{
		State:       github.String(state),
		Context:     github.String(p.context),
		Description: github.String(description),
	}
	if _, _, err := p.repos.CreateStatus(ctx, owner, repo, ref, status); err != nil {
		return fmt.Errorf("create status %s/%s@%s: %w", owner, repo, ref, err)
	}
	p.logger.Info("commit status published",
		zap.String("target", report.Target),
		zap.String("state", state))
	return nil
}

// parseTarget splits an owner/repo@ref target.
func parseTarget(target string) (owner, repo, ref string, ok bool) {
	path, ref, found := strings.Cut(target, "@")
	if !found || ref == "" {
		return "", "", "", false
	}
	owner, repo, found = strings.Cut(path, "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", "", false
	}
	return owner, repo, ref, true
}

func statusFor(report *workflow.Report) (state, description string) {
	if !report.OverallSuccess {
		return "error", "readiness assessment did not complete"
	}
	a := report.Assessment
	if a == nil {
		return "error", "readiness assessment produced no record"
	}
	if a.Decision.Approved {
		return "success", fmt.Sprintf("ready: score %.1f (%s), risk %s", a.QualityScore, a.Grade, a.Risk.Level)
	}
	return "failure", fmt.Sprintf("not ready: score %.1f (%s), risk %s", a.QualityScore, a.Grade, a.Risk.Level)
}
