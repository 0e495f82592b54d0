package extraction

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// VisionClient sends page images and a prompt to a vision model.
type VisionClient interface {
	Vision(ctx context.Context, prompt string, images []string) (string, error)
}

// AgentClient adapts a go-agents configuration to VisionClient. A fresh
// agent is created per call so concurrent page requests share nothing.
type AgentClient struct {
	cfg gaconfig.AgentConfig
}

// NewAgentClient creates an AgentClient for the given agent configuration.
func NewAgentClient(cfg gaconfig.AgentConfig) *AgentClient {
	return &AgentClient{cfg: cfg}
}

func (c *AgentClient) Vision(ctx context.Context, prompt string, images []string) (string, error) {
	a, err := agent.New(&c.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Vision(ctx, prompt, images)
	if err != nil {
		return "", fmt.Errorf("%w: vision call: %w", ErrTransient, err)
	}

	return resp.Content(), nil
}

// Chat sends a text-only prompt to the model.
func (c *AgentClient) Chat(ctx context.Context, prompt string) (string, error) {
	a, err := agent.New(&c.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: chat call: %w", ErrTransient, err)
	}

	return resp.Content(), nil
}
