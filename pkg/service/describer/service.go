package describer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// DefaultTimeout bounds one description call
const DefaultTimeout = 15 * time.Second

// client implements Service interface
type client struct {
	llmClient gollem.LLMClient
	timeout   time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a new describer with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient: llmClient,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Describe asks the model for one sentence describing the page. The result
// is trimmed and capped to the stored description length.
func (c *client) Describe(ctx context.Context, input Input) (string, error) {
	if model.IsBlank(input.Title) && model.IsBlank(input.URL) {
		return "", goerr.Wrap(model.ErrInvalidArgument, "title or url is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buildUserPrompt(input)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.New("empty LLM response")
	}

	var llmResp llmResponse
	if err := json.Unmarshal([]byte(resp.Texts[0]), &llmResp); err != nil {
		return "", goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", resp.Texts[0]))
	}

	desc := strings.Join(strings.Fields(llmResp.Description), " ")
	if desc == "" {
		return "", goerr.New("LLM returned an empty description")
	}

	return model.Truncate(desc, model.MaxDescriptionLength, model.DescKeepLength), nil
}

const systemPrompt = `You write descriptions for saved bookmarks.
Given a page title and URL, reply with one plain sentence of at most 300 characters describing what the page is about.
Do not invent facts that the title and URL do not suggest. Do not use markdown.`

func buildUserPrompt(input Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", input.Title)
	fmt.Fprintf(&sb, "URL: %s\n", input.URL)
	if input.SiteName != "" {
		fmt.Fprintf(&sb, "Site: %s\n", input.SiteName)
	}
	return sb.String()
}

func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "BookmarkDescription",
		Description: "A one-sentence description of a web page",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"description": {
				Type:        gollem.TypeString,
				Description: "One sentence, at most 300 characters",
				Required:    true,
			},
		},
	}
}
