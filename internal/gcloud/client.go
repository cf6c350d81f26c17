// Package gcloud invokes the gcloud CLI for the remote operations a
// provisioning run performs: project creation, billing links, service
// enablement, API key issuance, and project deletion.
//
// Every operation is a synchronous black-box call. The package does not
// assume any call is idempotent; duplicate-invocation safety is the remote
// side's responsibility.
package gcloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/executor"
)

// ErrAlreadyExists reports a create call that failed because the resource id
// is already taken. For ids generated this run it usually means an earlier
// retried attempt actually went through.
var ErrAlreadyExists = errors.New("resource already exists")

// CommandRunner executes one external command and returns its combined
// output. Swapped out in tests.
type CommandRunner func(name string, args ...string) ([]byte, error)

func runCommand(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// Client shells out to the gcloud binary.
type Client struct {
	bin string
	run CommandRunner
}

func NewClient(bin string) *Client {
	return &Client{bin: bin, run: runCommand}
}

// NewClientWithRunner returns a client that executes commands through run
// instead of the real binary.
func NewClientWithRunner(bin string, run CommandRunner) *Client {
	return &Client{bin: bin, run: run}
}

// CreateProject creates a project with the given id. Returns a wrapped
// ErrAlreadyExists when the id is already taken.
func (c *Client) CreateProject(projectID, displayName string) error {
	args := []string{"projects", "create", projectID, "--quiet"}
	if displayName != "" {
		args = append(args, fmt.Sprintf("--name=%s", displayName))
	}
	output, err := c.run(c.bin, args...)
	if err != nil {
		if isAlreadyExists(output) {
			return fmt.Errorf("project %s: %w", projectID, ErrAlreadyExists)
		}
		return fmt.Errorf("gcloud projects create failed: %w\n%s", err, output)
	}
	return nil
}

// LinkBilling attaches the project to a billing account.
func (c *Client) LinkBilling(projectID, billingAccount string) error {
	output, err := c.run(c.bin, "billing", "projects", "link", projectID,
		fmt.Sprintf("--billing-account=%s", billingAccount), "--quiet")
	if err != nil {
		return fmt.Errorf("gcloud billing link failed: %w\n%s", err, output)
	}
	return nil
}

// EnableService enables one service on the project.
func (c *Client) EnableService(projectID, service string) error {
	output, err := c.run(c.bin, "services", "enable", service,
		fmt.Sprintf("--project=%s", projectID), "--quiet")
	if err != nil {
		return fmt.Errorf("gcloud services enable failed: %w\n%s", err, output)
	}
	return nil
}

// apiKeyResponse covers both output shapes of `api-keys create`: the bare
// key resource, and the long-running operation wrapping it.
type apiKeyResponse struct {
	KeyString string `json:"keyString"`
	Response  struct {
		KeyString string `json:"keyString"`
	} `json:"response"`
}

// CreateAPIKey issues an API key on the project and returns the extracted
// key string. A success response without a key string is an extraction
// failure and is never retried.
func (c *Client) CreateAPIKey(projectID, displayName string) (string, error) {
	output, err := c.run(c.bin, "services", "api-keys", "create",
		fmt.Sprintf("--project=%s", projectID),
		fmt.Sprintf("--display-name=%s", displayName),
		"--format=json", "--quiet")
	if err != nil {
		return "", fmt.Errorf("gcloud api-keys create failed: %w\n%s", err, output)
	}

	var resp apiKeyResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return "", executor.Permanent(&executor.ExtractionError{Field: "keyString", Err: err})
	}
	key := resp.KeyString
	if key == "" {
		key = resp.Response.KeyString
	}
	if key == "" {
		return "", executor.Permanent(&executor.ExtractionError{Field: "keyString"})
	}
	return key, nil
}

// DeleteProject deletes the project.
func (c *Client) DeleteProject(projectID string) error {
	output, err := c.run(c.bin, "projects", "delete", projectID, "--quiet")
	if err != nil {
		return fmt.Errorf("gcloud projects delete failed: %w\n%s", err, output)
	}
	return nil
}

// ListProjects returns the ids of active projects whose id starts with
// prefix.
func (c *Client) ListProjects(prefix string) ([]string, error) {
	output, err := c.run(c.bin, "projects", "list",
		fmt.Sprintf("--filter=projectId:%s*", prefix), "--format=json")
	if err != nil {
		return nil, fmt.Errorf("gcloud projects list failed: %w\n%s", err, output)
	}

	var rows []struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.Unmarshal(output, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse project list: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProjectID)
	}
	return ids, nil
}

func isAlreadyExists(output []byte) bool {
	text := strings.ToLower(string(output))
	return strings.Contains(text, "already exists") ||
		strings.Contains(text, "already in use") ||
		strings.Contains(text, "alreadyexists")
}
