// Package docstore fronts the remote source-document store: it uploads
// a protocol's PDF bytes once per content hash and reuses the resulting
// handle for every later generate call, re-uploading only once that
// handle expires.
package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/protocolx/ent"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/llm"
)

// uploadProvider is the provider whose file store backs remote handles;
// the same provider must be reachable from every fallback chain tier
// that references a remote file, so uploads go through one fixed name.
const uploadProvider = "primary"

// Client wraps an llm.Client to provide get-or-upload and
// generate-against-handle semantics, persisting the handle on the
// owning Protocol row so repeat jobs against the same protocol skip
// the upload.
type Client struct {
	llm    *llm.Client
	client *ent.Client
}

// New builds a Client.
func New(llmClient *llm.Client, entClient *ent.Client) *Client {
	return &Client{llm: llmClient, client: entClient}
}

// GetOrUpload returns protocol's remote file handle, uploading content
// first if no handle is cached or the cached one has expired.
func (c *Client) GetOrUpload(ctx context.Context, protocolID string, content []byte) (string, error) {
	p, err := c.client.Protocol.Get(ctx, protocolID)
	if err != nil {
		return "", fmt.Errorf("get protocol %s: %w", protocolID, err)
	}

	if p.RemoteFileURI != nil && p.RemoteFileExpiresAt != nil && time.Now().Before(*p.RemoteFileExpiresAt) {
		return *p.RemoteFileURI, nil
	}

	uri, expiresAt, err := c.llm.UploadFile(ctx, uploadProvider, content, "application/pdf", p.Filename)
	if err != nil {
		return "", fmt.Errorf("upload protocol %s: %w", protocolID, err)
	}

	update := c.client.Protocol.UpdateOneID(protocolID).SetRemoteFileURI(uri)
	if !expiresAt.IsZero() {
		update = update.SetRemoteFileExpiresAt(expiresAt)
	}
	if _, err := update.Save(ctx); err != nil {
		return "", fmt.Errorf("persist remote file handle for protocol %s: %w", protocolID, err)
	}

	return uri, nil
}

// GenerateContent runs prompt against remoteFileURI using chain,
// optionally constraining the response to jsonSchema.
func (c *Client) GenerateContent(ctx context.Context, chain config.LLMFallbackChain, remoteFileURI, prompt, jsonSchema string) (string, error) {
	resp, err := c.llm.Generate(ctx, chain, llm.GenerateRequest{
		Prompt:        prompt,
		JSONSchema:    jsonSchema,
		RemoteFileURI: remoteFileURI,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text, nil
}
