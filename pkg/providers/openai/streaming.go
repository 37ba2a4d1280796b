package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"hungrycoders/chatrelay/pkg/providers"
)

// streamReader reads Server-Sent Events from an OpenAI-compatible stream.
type streamReader struct {
	client  *Client
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// newStreamReader opens the SSE stream for a streaming completion request.
func newStreamReader(ctx context.Context, client *Client, req *wireRequest) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Do(ctx, "POST", client.completionsURL(), bodyBytes, client.headers())
	if err != nil {
		return nil, err
	}

	return &streamReader{
		client:  client,
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

// Read returns the next chunk, io.EOF at normal end of stream, or an error.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &providers.StreamError{
					Provider: s.client.Name(),
					Message:  "failed to read stream",
					Cause:    err,
				}
			}
			return nil, io.EOF
		}

		line := s.scanner.Text()
		if line == "" {
			continue
		}

		// SSE frames other than data (comments, event names) are skipped.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			return nil, io.EOF
		}

		var wireChunk wireStreamResponse
		if err := json.Unmarshal([]byte(data), &wireChunk); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.client.Name(),
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}

		return transformStreamChunk(&wireChunk), nil
	}
}

// Close closes the underlying response body.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// isEOF reports whether err marks normal end of stream.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
