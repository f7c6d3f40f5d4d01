package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/pkg/analysis"
	"github.com/repopulse/repopulse/pkg/diffcache"
	"github.com/repopulse/repopulse/pkg/persist"
	"github.com/repopulse/repopulse/pkg/sink"
	"github.com/repopulse/repopulse/pkg/vcs"
	"github.com/repopulse/repopulse/pkg/vcs/gitsource"
	"github.com/repopulse/repopulse/pkg/vcs/svnsource"
)

// ToolNameActivity is the activity analysis tool name.
const ToolNameActivity = "repopulse_activity"

const activityToolDescription = `Analyze commit activity of a git or svn repository over a date range.
Returns weekly and rolling-window aggregates: commit counts, unique authors,
credited contributors, line churn, and release versions. Diff stats are
cached on disk, so repeated calls over overlapping ranges are fast.`

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepo indicates the repo parameter is empty.
	ErrEmptyRepo = errors.New("repo parameter is required and must not be empty")
	// ErrBadVCS indicates an unsupported vcs value.
	ErrBadVCS = errors.New("vcs must be \"git\" or \"svn\"")
	// ErrBadDate indicates a date parameter that is not YYYY-MM-DD.
	ErrBadDate = errors.New("dates must use YYYY-MM-DD")
)

// ActivityInput is the input schema for the repopulse_activity tool.
type ActivityInput struct {
	Repo        string `json:"repo"                   jsonschema:"repository URL or local path"`
	VCS         string `json:"vcs,omitempty"          jsonschema:"version control system: git (default) or svn"`
	Since       string `json:"since,omitempty"        jsonschema:"lower date bound, YYYY-MM-DD"`
	To          string `json:"to,omitempty"           jsonschema:"upper date bound, YYYY-MM-DD"`
	WindowWeeks int    `json:"window_weeks,omitempty" jsonschema:"rolling window length in weeks (default: 12)"`
	Workers     int    `json:"workers,omitempty"      jsonschema:"concurrent diff fetches (default: 4)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// handleActivity processes repopulse_activity tool calls.
func (s *Server) handleActivity(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ActivityInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	since, to, err := validateActivityInput(input)
	if err != nil {
		return errorResult(err)
	}

	source, cleanup, err := s.openSource(ctx, input)
	if err != nil {
		return errorResult(err)
	}
	defer cleanup()

	cacheDir := s.deps.CacheDir
	if cacheDir == "" {
		cacheDir = config.DefaultCacheDir
	}

	store, err := diffcache.Open(cacheDir, source.Name(), source.RepoID(), persist.NewJSONCodec())
	if err != nil {
		return errorResult(fmt.Errorf("open diff cache: %w", err))
	}
	defer func() { _ = store.Close() }()

	engine := &analysis.Engine{
		Source:      source,
		Cache:       store,
		WindowWeeks: input.WindowWeeks,
		Workers:     input.Workers,
		Logger:      s.deps.Logger,
		Metrics:     s.deps.Metrics,
	}

	report, err := engine.Run(ctx, since, to)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(sink.NewReportDoc(report))
}

// openSource builds the VCS adapter for the input, returning a cleanup
// function to release it.
func (s *Server) openSource(ctx context.Context, input ActivityInput) (vcs.Source, func(), error) {
	if input.VCS == "svn" {
		return svnsource.New(input.Repo), func() {}, nil
	}

	cloneDir := s.deps.CloneDir
	if cloneDir == "" {
		cloneDir = config.DefaultCloneDir
	}

	repo, err := gitsource.EnsureCloned(ctx, input.Repo, cloneDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}

	return repo, repo.Free, nil
}

// validateActivityInput validates the activity tool input parameters.
func validateActivityInput(input ActivityInput) (since, to time.Time, err error) {
	if input.Repo == "" {
		return time.Time{}, time.Time{}, ErrEmptyRepo
	}

	switch input.VCS {
	case "", "git", "svn":
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: got %q", ErrBadVCS, input.VCS)
	}

	if input.Since != "" {
		since, err = time.Parse(time.DateOnly, input.Since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: since %q", ErrBadDate, input.Since)
		}
	}

	if input.To != "" {
		to, err = time.Parse(time.DateOnly, input.To)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to %q", ErrBadDate, input.To)
		}
	}

	return since, to, nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
