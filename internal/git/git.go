// Package git reads version-control state needed to target the external
// tracker: repository presence and the remote's owner/name slug.
package git

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// IsRepo checks if we're in a git repository
func IsRepo(dir string) bool {
	_, err := runGit(dir, "rev-parse", "--git-dir")
	return err == nil
}

// RemoteURL returns the fetch URL of the named remote
func RemoteURL(dir, remote string) (string, error) {
	out, err := runGit(dir, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("remote %q not configured: %w", remote, err)
	}
	return strings.TrimSpace(out), nil
}

// githubURL matches https, ssh and scp-like GitHub remote forms
var githubURL = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseGitHubRepo extracts the "owner/name" slug from a remote URL.
// Supported forms: https://github.com/o/r(.git), git@github.com:o/r(.git),
// ssh://git@github.com/o/r.
func ParseGitHubRepo(url string) (string, error) {
	m := githubURL.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", fmt.Errorf("not a GitHub remote: %s", url)
	}
	return m[1] + "/" + m[2], nil
}

// DetectRepo resolves the owner/name slug of the origin remote
func DetectRepo(dir string) (string, error) {
	url, err := RemoteURL(dir, "origin")
	if err != nil {
		return "", err
	}
	return ParseGitHubRepo(url)
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", fmt.Errorf("%s: %s", err, stderr.String())
	}

	return stdout.String(), nil
}
