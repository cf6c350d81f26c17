package gcloud

import (
	"encoding/json"
	"os/exec"
)

// CheckStatus represents the outcome of one preflight check
type CheckStatus int

const (
	CheckUnknown CheckStatus = iota
	CheckOK
	CheckFailed
)

// PreflightResult represents the readiness of the local environment
type PreflightResult struct {
	Binary        CheckStatus
	Auth          CheckStatus
	ProjectAccess CheckStatus
	ActiveAccount string
}

// Ready reports whether every check passed.
func (r *PreflightResult) Ready() bool {
	return r.Binary == CheckOK && r.Auth == CheckOK && r.ProjectAccess == CheckOK
}

// Preflight checks that the gcloud binary is installed, an account is
// authenticated, and projects are listable with the active credentials.
func (c *Client) Preflight() *PreflightResult {
	result := &PreflightResult{}

	if _, err := exec.LookPath(c.bin); err != nil {
		result.Binary = CheckFailed
		return result
	}
	result.Binary = CheckOK

	result.Auth, result.ActiveAccount = c.checkAuth()
	if result.Auth != CheckOK {
		return result
	}

	if _, err := c.run(c.bin, "projects", "list", "--limit=1", "--format=json"); err != nil {
		result.ProjectAccess = CheckFailed
		return result
	}
	result.ProjectAccess = CheckOK

	return result
}

func (c *Client) checkAuth() (CheckStatus, string) {
	output, err := c.run(c.bin, "auth", "list", "--filter=status:ACTIVE", "--format=json")
	if err != nil {
		return CheckFailed, ""
	}

	var accounts []struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(output, &accounts); err != nil || len(accounts) == 0 {
		return CheckFailed, ""
	}
	return CheckOK, accounts[0].Account
}
