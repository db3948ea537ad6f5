package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/compozy/docrag/cli/helpers"
	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/infra/server/routes"
	"github.com/compozy/docrag/engine/rag"
)

const (
	defaultTimeout = 2 * time.Minute
	maxEventLine   = 1 << 20
)

// Client talks to a running docrag server.
type Client struct {
	http *resty.Client
	base string
}

// NewClient targets serverURL; basePath defaults to /api/v1.
func NewClient(serverURL, basePath string, timeout time.Duration) (*Client, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(serverURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, base: routes.Base(basePath)}, nil
}

// Document is the wire shape of a document record.
type Document struct {
	ID            string    `json:"documentId"`
	FileName      string    `json:"fileName"`
	FileType      string    `json:"fileType"`
	FileSizeBytes int64     `json:"fileSizeBytes"`
	ChunkCount    int       `json:"chunkCount"`
	Description   string    `json:"description,omitempty"`
	Active        bool      `json:"active"`
	UploadedAt    time.Time `json:"uploadedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (d *Document) record() *document.Record {
	return &document.Record{
		ID:            d.ID,
		FileName:      d.FileName,
		FileType:      d.FileType,
		FileSizeBytes: d.FileSizeBytes,
		ChunkCount:    d.ChunkCount,
		Description:   d.Description,
		Active:        d.Active,
		UploadedAt:    d.UploadedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type problem struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Detail  string `json:"details"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&problem{})
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return helpers.NewCliError("NETWORK_ERROR", "request failed", err.Error())
	}
	if !resp.IsError() {
		return nil
	}
	p, ok := resp.Error().(*problem)
	if !ok || p.Message == "" {
		return &helpers.CliError{
			Code:    "HTTP_ERROR",
			Message: http.StatusText(resp.StatusCode()),
			Status:  resp.StatusCode(),
		}
	}
	code := p.Code
	if code == "" {
		code = "HTTP_ERROR"
	}
	return &helpers.CliError{Code: code, Message: p.Message, Status: resp.StatusCode()}
}

// IngestInput describes a local file to upload.
type IngestInput struct {
	Path        string
	DocumentID  string
	Description string
}

// Ingest uploads the file as multipart form data.
func (c *Client) Ingest(ctx context.Context, in IngestInput) (*document.Record, error) {
	var out struct {
		Document Document `json:"document"`
	}
	form := map[string]string{}
	if in.DocumentID != "" {
		form["documentId"] = in.DocumentID
	}
	if in.Description != "" {
		form["description"] = in.Description
	}
	resp, err := c.request(ctx).
		SetFile("file", in.Path).
		SetFormData(form).
		SetResult(&out).
		Post(routes.RAG(c.base) + "/ingest")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", filepath.Base(in.Path), err)
	}
	return out.Document.record(), nil
}

type askBody struct {
	Question   string `json:"question"`
	DocumentID string `json:"documentId,omitempty"`
}

// Ask returns a generated answer.
func (c *Client) Ask(ctx context.Context, in rag.AnswerInput) (*rag.Answer, error) {
	var out rag.Answer
	resp, err := c.request(ctx).
		SetBody(askBody{Question: in.Question, DocumentID: in.DocumentID}).
		SetResult(&out).
		Post(routes.RAG(c.base) + "/ask")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// AskStream delivers answer fragments to onText as they arrive and returns
// the answer metadata from the final event.
func (c *Client) AskStream(ctx context.Context, in rag.AnswerInput, onText func(string) error) (*rag.Answer, error) {
	resp, err := c.request(ctx).
		SetHeader("Accept", "text/event-stream").
		SetBody(askBody{Question: in.Question, DocumentID: in.DocumentID}).
		SetDoNotParseResponse(true).
		Post(routes.RAG(c.base) + "/ask/stream")
	if err != nil {
		return nil, helpers.NewCliError("NETWORK_ERROR", "request failed", err.Error())
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, decodeProblem(resp.StatusCode(), body)
	}
	answer := &rag.Answer{Question: in.Question, DocumentID: in.DocumentID}
	var text strings.Builder
	err = readEvents(body, func(event string, data []byte) (bool, error) {
		switch event {
		case "chunk":
			var chunk struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(data, &chunk); err != nil {
				return false, fmt.Errorf("decode chunk event: %w", err)
			}
			text.WriteString(chunk.Text)
			return true, onText(chunk.Text)
		case "done":
			if err := json.Unmarshal(data, answer); err != nil {
				return false, fmt.Errorf("decode done event: %w", err)
			}
			return false, nil
		case "error":
			var p problem
			_ = json.Unmarshal(data, &p)
			return false, helpers.NewCliError("GENERATION_ERROR", p.Message)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	answer.Text = text.String()
	return answer, nil
}

// readEvents parses server-sent events until fn returns false or the body ends.
func readEvents(r io.Reader, fn func(event string, data []byte) (bool, error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventLine)
	var event string
	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "" && len(data) == 0 {
				continue
			}
			more, err := fn(event, data)
			if err != nil || !more {
				return err
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func decodeProblem(status int, body io.Reader) error {
	var p problem
	if err := json.NewDecoder(body).Decode(&p); err != nil || p.Message == "" {
		return &helpers.CliError{Code: "HTTP_ERROR", Message: http.StatusText(status), Status: status}
	}
	code := p.Code
	if code == "" {
		code = "HTTP_ERROR"
	}
	return &helpers.CliError{Code: code, Message: p.Message, Status: status}
}

type searchBody struct {
	Question   string  `json:"question"`
	MaxResults int     `json:"maxResults,omitempty"`
	MinScore   float64 `json:"minScore"`
	DocumentID string  `json:"documentId,omitempty"`
}

// Search returns matching chunks without generating an answer.
func (c *Client) Search(ctx context.Context, q rag.Query) (*rag.SearchResult, error) {
	var out rag.SearchResult
	resp, err := c.request(ctx).
		SetBody(searchBody{Question: q.Question, MaxResults: q.MaxResults, MinScore: q.MinScore, DocumentID: q.DocumentID}).
		SetResult(&out).
		Post(routes.RAG(c.base) + "/search")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDocuments returns active documents, newest first.
func (c *Client) ListDocuments(ctx context.Context, filter rag.ListFilter) ([]*document.Record, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	req := c.request(ctx).SetResult(&out)
	if filter.FileType != "" {
		req.SetQueryParam("fileType", filter.FileType)
	}
	if filter.UploadedAfter != nil {
		req.SetQueryParam("uploadedAfter", filter.UploadedAfter.Format(time.RFC3339))
	}
	resp, err := req.Get(routes.Documents(c.base))
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	records := make([]*document.Record, 0, len(out.Documents))
	for i := range out.Documents {
		records = append(records, out.Documents[i].record())
	}
	return records, nil
}

// GetDocument returns one record in any state.
func (c *Client) GetDocument(ctx context.Context, id string) (*document.Record, error) {
	var out struct {
		Document Document `json:"document"`
	}
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get(routes.Documents(c.base) + "/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Document.record(), nil
}

// DeleteDocument soft-deletes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		Delete(routes.Documents(c.base) + "/{id}")
	return checkResponse(resp, err)
}

// Stats returns active document and chunk counts.
func (c *Client) Stats(ctx context.Context) (*rag.Stats, error) {
	var out rag.Stats
	resp, err := c.request(ctx).SetResult(&out).Get(routes.RAG(c.base) + "/stats")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports whether the server answers its health endpoint with 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.base + routes.Health())
	if err != nil {
		return helpers.NewCliError("NETWORK_ERROR", "request failed", err.Error())
	}
	if resp.StatusCode() != http.StatusOK {
		return &helpers.CliError{Code: "UNHEALTHY", Message: "server is not healthy", Status: resp.StatusCode()}
	}
	return nil
}
