// Package router selects and executes a response-generation strategy
// per model id. It never mutates stored state; it only returns
// candidate messages for the orchestrator to persist.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vihaan69-420/school-agent-simple/internal/knowledge"
	"github.com/vihaan69-420/school-agent-simple/internal/types"
	"github.com/vihaan69-420/school-agent-simple/internal/web"
	"github.com/vihaan69-420/school-agent-simple/pkg/llm"
)

const (
	retrievalLimit    = 4
	searchResultLimit = 3
)

// Retriever is the corpus collaborator: query in, ranked passages out.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]knowledge.Passage, error)
}

// Result is the outcome of one routing call. ProcessingTime is the
// wall-clock duration of the whole call and is set even on failure.
type Result struct {
	Content        string
	Sources        []string
	ProcessingTime float64
	ModelName      string
}

// Router dispatches a session's history to the strategy selected by
// model id.
type Router struct {
	provider  llm.Provider
	retriever Retriever
	searcher  web.Searcher
	fetcher   web.Fetcher
	prompts   *PromptBuilder
	retry     *RetryPolicy
	timeout   time.Duration
}

// New creates a Router over the given collaborators. retriever,
// searcher, and fetcher may be nil when the corresponding models are
// not configured; routing to them then degrades to an uncontexted
// provider call.
func New(provider llm.Provider, retriever Retriever, searcher web.Searcher, fetcher web.Fetcher, prompts *PromptBuilder, timeout time.Duration) *Router {
	return &Router{
		provider:  provider,
		retriever: retriever,
		searcher:  searcher,
		fetcher:   fetcher,
		prompts:   prompts,
		retry:     DefaultRetryPolicy(),
		timeout:   timeout,
	}
}

// Route produces the next assistant message for the history using the
// strategy registered under modelID. On failure the returned Result
// still carries ProcessingTime and ModelName so the orchestrator can
// record timing on the error-flagged message.
func (r *Router) Route(ctx context.Context, modelID string, history []*types.Message) (*Result, error) {
	desc, ok := Lookup(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", types.ErrValidation, modelID)
	}
	latest := latestUserMessage(history)
	if latest == nil {
		return nil, fmt.Errorf("%w: history has no user message", types.ErrValidation)
	}

	start := time.Now()
	var (
		content string
		sources []string
		err     error
	)
	switch desc.ID {
	case "general":
		content, sources, err = r.routeGeneral(ctx, history)
	case "everest":
		content, sources, err = r.routeEverest(ctx, latest.Content, history)
	case "web_scraper":
		content, sources, err = r.routeWebResearch(ctx, latest.Content, history)
	}

	result := &Result{
		Content:        content,
		Sources:        sources,
		ProcessingTime: time.Since(start).Seconds(),
		ModelName:      desc.Name,
	}
	if err != nil {
		return result, ClassifyUpstream(err)
	}
	return result, nil
}

// routeGeneral forwards the conversation verbatim with a dated system
// prompt. No grounding, no sources.
func (r *Router) routeGeneral(ctx context.Context, history []*types.Message) (string, []string, error) {
	now := time.Now()
	sys := fmt.Sprintf(`You are a helpful, fast AI assistant for students. Be concise and direct.
Today's date: %s (%s)`, now.Format("January 2, 2006"), now.Format("Monday"))

	resp, err := r.complete(ctx, r.prompts.Build(sys, "", history))
	if err != nil {
		return "", nil, err
	}
	return resp.Content, nil, nil
}

const everestPrompt = `You are the official AI assistant for Everest Academy.
Always interpret questions in the context of the school. Provide accurate
information grounded in the supplied context and cite each source only once.
Be concise but thorough.`

// routeEverest grounds the answer in corpus passages scoped by the
// inferred subject of the latest user turn. Zero retrieval matches is
// not a failure: the provider is still called with no injected context
// and the sources stay empty.
func (r *Router) routeEverest(ctx context.Context, query string, history []*types.Message) (string, []string, error) {
	var passages []knowledge.Passage
	if r.retriever != nil {
		var err error
		passages, err = r.retriever.Retrieve(ctx, query, retrievalLimit)
		if err != nil {
			return "", nil, err
		}
	}

	var grounding strings.Builder
	sources := []string{}
	for _, p := range passages {
		fmt.Fprintf(&grounding, "[%s]\n%s\n\n", p.Title, p.Content)
		sources = append(sources, p.Title)
	}

	resp, err := r.complete(ctx, r.prompts.Build(everestPrompt, grounding.String(), history))
	if err != nil {
		return "", nil, err
	}
	return resp.Content, sources, nil
}

const researchPrompt = `You are an advanced web research assistant. Analyze the
supplied page content, extract the information the user asked for, and cite
every source with the [Source: URL] format. Structure the answer clearly.`

// routeWebResearch fetches the URLs named in the latest user turn, or
// searches the web when none are named, injects the page content as
// research context, and reports the URLs the response actually cites.
func (r *Router) routeWebResearch(ctx context.Context, query string, history []*types.Message) (string, []string, error) {
	urls := ExtractURLs(query)
	if len(urls) == 0 && r.searcher != nil {
		results, err := r.searcher.Search(ctx, query, searchResultLimit)
		if err != nil {
			return "", nil, err
		}
		for _, res := range results {
			urls = append(urls, res.URL)
		}
	}

	var grounding strings.Builder
	if r.fetcher != nil {
		for _, u := range urls {
			page, err := r.fetcher.Fetch(ctx, u)
			if err != nil {
				slog.Warn("page fetch failed", "url", u, "error", err)
				continue
			}
			fmt.Fprintf(&grounding, "Page: %s\n%s\n\n", page.URL, page.Markdown)
		}
	}

	resp, err := r.complete(ctx, r.prompts.Build(researchPrompt, grounding.String(), history))
	if err != nil {
		return "", nil, err
	}
	return resp.Content, ExtractCitedURLs(resp.Content), nil
}

// complete calls the provider under the per-call timeout, retrying
// transient network failures once with backoff.
func (r *Router) complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	var resp *llm.Response
	err := r.retry.Execute(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		var callErr error
		resp, callErr = r.provider.Complete(callCtx, messages)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func latestUserMessage(history []*types.Message) *types.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleUser {
			return history[i]
		}
	}
	return nil
}
