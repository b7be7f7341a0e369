// Package crm is a thin HTTP client for the record store: association reads,
// property reads, file uploads, and note creation.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	internalstrings "github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/strings"
)

// DefaultBaseURL is the production record-store API endpoint.
const DefaultBaseURL = "https://api.hubapi.com"

// noteToContactTypeID is the store-defined association type linking a note
// engagement to a contact record.
const noteToContactTypeID = 202

// Client calls the record-store REST API with a bearer credential captured
// once at construction.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client for the given base URL. An empty base URL uses
// DefaultBaseURL.
func NewClient(baseURL, token string) *Client {
	trimmed := internalstrings.TrimTrailingSlash(baseURL)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	return &Client{
		baseURL: trimmed,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Associations lists the IDs of child records associated with a parent
// contact, up to limit.
func (c *Client) Associations(ctx context.Context, parentID, childTypeID string, limit int) ([]string, error) {
	path := fmt.Sprintf("/crm/v4/objects/contacts/%s/associations/%s?limit=%d",
		url.PathEscape(parentID), url.PathEscape(childTypeID), limit)
	var response associationsResponse
	if err := c.getJSON(ctx, path, &response); err != nil {
		return nil, err
	}
	if response.Results == nil {
		return nil, fmt.Errorf("unexpected association response shape for %s", parentID)
	}
	ids := make([]string, 0, len(response.Results))
	for _, result := range response.Results {
		id := result.ToObjectID.String()
		if id == "" {
			return nil, fmt.Errorf("association result missing object id for %s", parentID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Properties fetches the named properties of one record.
func (c *Client) Properties(ctx context.Context, objectType, id string, props []string) (map[string]string, error) {
	path := fmt.Sprintf("/crm/v3/objects/%s/%s?properties=%s&archived=false",
		url.PathEscape(objectType), url.PathEscape(id), url.QueryEscape(strings.Join(props, ",")))
	var response recordResponse
	if err := c.getJSON(ctx, path, &response); err != nil {
		return nil, err
	}
	if response.Properties == nil {
		return map[string]string{}, nil
	}
	return response.Properties, nil
}

// UploadFile stores a file in the given folder and returns its identifiers.
func (c *Client) UploadFile(ctx context.Context, data []byte, fileName, folderID, access string) (*File, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	options, err := json.Marshal(map[string]string{"access": access})
	if err != nil {
		return nil, err
	}
	if err := writer.WriteField("options", string(options)); err != nil {
		return nil, err
	}
	if err := writer.WriteField("folderId", folderID); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/v3/files", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var file File
	if err := c.do(req, &file); err != nil {
		return nil, fmt.Errorf("upload file %s: %w", fileName, err)
	}
	return &file, nil
}

// CreateNote attaches a note with the given attachment to a record.
func (c *Client) CreateNote(ctx context.Context, body string, timestamp time.Time, attachmentID, recordID string) (*Note, error) {
	payload := noteRequest{
		Properties: map[string]string{
			"hs_note_body":      body,
			"hs_timestamp":      timestamp.UTC().Format(time.RFC3339),
			"hs_attachment_ids": attachmentID,
		},
		Associations: []noteAssociation{{
			To: noteAssociationTarget{ID: recordID},
			Types: []noteAssociationType{{
				Category: "HUBSPOT_DEFINED",
				TypeID:   noteToContactTypeID,
			}},
		}},
	}
	var note Note
	if err := c.postJSON(ctx, "/crm/v3/objects/notes", payload, &note); err != nil {
		return nil, fmt.Errorf("create note for %s: %w", recordID, err)
	}
	return &note, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readErrorResponse(resp)
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err == nil {
		for _, key := range []string{"message", "error"} {
			if message, ok := payload[key].(string); ok && message != "" {
				return fmt.Errorf("crm error (%s): %s", strconv.Itoa(resp.StatusCode), message)
			}
		}
	}
	return fmt.Errorf("crm error: %s", resp.Status)
}
