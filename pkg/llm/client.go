// Package llm wraps the grpc transport to the generative-model sidecar
// used by the two-phase extractor and the interpretation pipeline. A
// Client holds one grpc connection per configured provider and tries
// them in fallback order on transient errors.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	pb "github.com/codeready-toolchain/protocolx/proto/llm"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// GenerateRequest is one completion call against a named model.
type GenerateRequest struct {
	Prompt        string
	JSONSchema    string
	RemoteFileURI string
	Temperature   *float32
	MaxTokens     *int32
}

// GenerateResponse is a completed call's result.
type GenerateResponse struct {
	Text         string
	FinishReason string
	Provider     string
}

// Client dials every provider in a fallback chain up front and tries
// them in order, falling through to the next tier on a transient grpc
// error (unavailable, deadline exceeded, resource exhausted).
type Client struct {
	conns map[string]*providerConn
}

type providerConn struct {
	conn    *grpc.ClientConn
	client  pb.LLMServiceClient
	cfg     config.LLMProviderConfig
	logName string
}

// NewClient dials every provider named in registry, keyed by provider name.
func NewClient(registry *config.LLMProviderRegistry) (*Client, error) {
	conns := make(map[string]*providerConn, registry.Len())
	for name, cfg := range registry.GetAll() {
		conn, err := grpc.NewClient(cfg.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("dial llm provider %s: %w", name, err)
		}
		conns[name] = &providerConn{
			conn:    conn,
			client:  pb.NewLLMServiceClient(conn),
			cfg:     *cfg,
			logName: name,
		}
	}
	return &Client{conns: conns}, nil
}

// Close closes every provider connection.
func (c *Client) Close() error {
	var firstErr error
	for _, p := range c.conns {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Generate runs req against chain in order, returning the first
// successful response. A provider is skipped and the next tier tried
// when the call fails with a transient grpc status; any other error
// is returned immediately.
func (c *Client) Generate(ctx context.Context, chain config.LLMFallbackChain, req GenerateRequest) (GenerateResponse, error) {
	providers := chain.Providers()
	if len(providers) == 0 {
		return GenerateResponse{}, fmt.Errorf("llm fallback chain has no providers configured")
	}

	var lastErr error
	for _, name := range providers {
		p, ok := c.conns[name]
		if !ok {
			lastErr = fmt.Errorf("llm provider %q not dialed", name)
			continue
		}

		resp, err := p.generateWithRetries(ctx, req)
		if err == nil {
			return GenerateResponse{Text: resp.Text, FinishReason: resp.FinishReason, Provider: name}, nil
		}
		lastErr = err
		if !isTransient(err) {
			return GenerateResponse{}, fmt.Errorf("llm provider %s: %w", name, err)
		}
		slog.Warn("llm provider failed, falling back", "provider", name, "error", err)
	}
	return GenerateResponse{}, fmt.Errorf("all llm providers in chain exhausted: %w", lastErr)
}

func (p *providerConn) generateWithRetries(ctx context.Context, req GenerateRequest) (*pb.GenerateResponse, error) {
	timeout := p.cfg.CallTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	attempts := p.cfg.TransportRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := p.client.Generate(callCtx, &pb.GenerateRequest{
			Model:         p.cfg.Model,
			Prompt:        req.Prompt,
			JsonSchema:    req.JSONSchema,
			RemoteFileUri: req.RemoteFileURI,
			Temperature:   req.Temperature,
			MaxTokens:     req.MaxTokens,
		})
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// UploadFile registers content with provider name's file store and
// returns a handle usable as RemoteFileURI in a later Generate call.
func (c *Client) UploadFile(ctx context.Context, provider string, content []byte, contentType, displayName string) (string, time.Time, error) {
	p, ok := c.conns[provider]
	if !ok {
		return "", time.Time{}, fmt.Errorf("llm provider %q not dialed", provider)
	}

	resp, err := p.client.UploadFile(ctx, &pb.UploadFileRequest{
		Content:     content,
		ContentType: contentType,
		DisplayName: displayName,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("upload file to %s: %w", provider, err)
	}

	expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		return resp.RemoteFileUri, time.Time{}, nil
	}
	return resp.RemoteFileUri, expiresAt, nil
}

func isTransient(err error) bool {
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
