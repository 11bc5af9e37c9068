// Package update warns when a newer streammd release exists. Checks run
// in a detached background process at most once a day, so startup never
// waits on the network.
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	checkInterval         = 24 * time.Hour
	userAgent             = "streammd-cli"
	SkipUpdateEnvVar      = "STREAMMD_SKIP_UPDATE_CHECK"
	RepoOwner             = "samsaffron"
	RepoName              = "streammd"
	updateCheckCommandArg = "__update-check"
)

// ReleaseInfo holds what the redirect-based lookup can see of a GitHub
// release: its tag.
type ReleaseInfo struct {
	TagName string `json:"tag_name"`
}

// UpdateCheckCmd is the hidden command the background process runs.
var UpdateCheckCmd = &cobra.Command{
	Use:    updateCheckCommandArg,
	Short:  "internal update check",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv(SkipUpdateEnvVar) == "" {
			os.Setenv(SkipUpdateEnvVar, "1")
		}
		return PerformUpdateCheck(cmd.Context())
	},
}

// SetupUpdateChecks wires update checking into CLI startup. Dev builds
// and runs with the skip variable set never check.
func SetupUpdateChecks(rootCmd *cobra.Command, version string) {
	rootCmd.AddCommand(UpdateCheckCmd)
	cobra.OnInitialize(func() {
		if version == "dev" || os.Getenv(SkipUpdateEnvVar) != "" {
			return
		}
		state, err := LoadState()
		if err != nil {
			return
		}
		WarnIfOutdated(version, state)
		if !ShouldCheckForUpdates(state) {
			return
		}
		if err := LaunchBackgroundUpdateCheck(); err != nil {
			fmt.Fprintf(os.Stderr, "streammd: failed to schedule update check: %v\n", err)
		}
	})
}

// ShouldCheckForUpdates reports whether the last check is old enough to
// repeat.
func ShouldCheckForUpdates(state *State) bool {
	if state == nil || state.LastChecked.IsZero() {
		return true
	}
	return time.Since(state.LastChecked) >= checkInterval
}

// LaunchBackgroundUpdateCheck re-executes the binary with the hidden
// check command, detached from the current run.
func LaunchBackgroundUpdateCheck() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, updateCheckCommandArg)
	cmd.Env = append(os.Environ(), SkipUpdateEnvVar+"=1")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Start()
}

// PerformUpdateCheck fetches the latest release tag and records the
// outcome, including failures, so a flaky network cannot cause a check
// storm.
func PerformUpdateCheck(ctx context.Context) error {
	state, err := LoadState()
	if err != nil {
		state = &State{}
	}
	state.LastChecked = time.Now().UTC()

	info, err := FetchLatestRelease(ctx)
	if err != nil {
		state.LastError = err.Error()
	} else {
		state.LatestVersion = info.TagName
		state.LastError = ""
	}
	return SaveState(state)
}

// WarnIfOutdated prints a note when a newer release is known, at most
// once per version per day.
func WarnIfOutdated(currentVersion string, state *State) {
	if state == nil {
		return
	}
	latest := strings.TrimSpace(state.LatestVersion)
	if latest == "" || !IsVersionOutdated(currentVersion, latest) {
		return
	}
	if state.NotifiedVersion == latest && time.Since(state.LastNotified) < checkInterval {
		return
	}
	fmt.Fprintf(os.Stderr, "A newer streammd release (%s) is available: https://github.com/%s/%s/releases/latest\n", latest, RepoOwner, RepoName)
	state.NotifiedVersion = latest
	state.LastNotified = time.Now().UTC()
	_ = SaveState(state)
}

// releaseBaseURL is the base URL for release lookups, overridden in tests.
var releaseBaseURL = "https://github.com"

// FetchLatestRelease reads the latest release tag from the
// releases/latest redirect instead of the GitHub API, which is
// rate-limited to 60 unauthenticated requests an hour.
func FetchLatestRelease(ctx context.Context) (*ReleaseInfo, error) {
	releaseURL := fmt.Sprintf("%s/%s/%s/releases/latest", releaseBaseURL, RepoOwner, RepoName)
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("expected redirect, got %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	tag, err := tagFromRedirect(resp.Header.Get("Location"))
	if err != nil {
		return nil, err
	}
	return &ReleaseInfo{TagName: tag}, nil
}

// tagFromRedirect extracts the release tag from the Location header of
// the releases/latest redirect, which points at
// /<owner>/<repo>/releases/tag/<tag>.
func tagFromRedirect(location string) (string, error) {
	if location == "" {
		return "", errors.New("redirect response missing Location header")
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	wantPrefix := fmt.Sprintf("/%s/%s/releases/tag/", RepoOwner, RepoName)
	if !strings.HasPrefix(parsed.Path, wantPrefix) {
		return "", fmt.Errorf("unexpected redirect path: %s", parsed.Path)
	}
	tag := path.Base(parsed.Path)
	if tag == "" || tag == "." || tag == "/" {
		return "", fmt.Errorf("could not parse tag from redirect URL: %s", location)
	}
	return tag, nil
}

// IsVersionOutdated reports whether current is older than latest.
func IsVersionOutdated(current, latest string) bool {
	current = NormalizeVersion(current)
	latest = NormalizeVersion(latest)
	if current == "" || latest == "" {
		return false
	}
	cmp, ok := CompareVersionStrings(current, latest)
	return ok && cmp < 0
}

// NormalizeVersion strips the v prefix and any non-numeric suffix, so
// "v1.2.3-beta1" compares as "1.2.3" and "dev" as "".
func NormalizeVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	for i := 0; i < len(v); i++ {
		if c := v[i]; (c < '0' || c > '9') && c != '.' {
			return v[:i]
		}
	}
	return v
}

// CompareVersionStrings compares dotted version strings. Returns -1 if
// a < b, 0 if equal, 1 if a > b; ok is false when either side fails to
// parse. Missing segments count as zero, so "1.2" equals "1.2.0".
func CompareVersionStrings(a, b string) (int, bool) {
	aParts, ok := parseVersionParts(a)
	if !ok {
		return 0, false
	}
	bParts, ok := parseVersionParts(b)
	if !ok {
		return 0, false
	}

	for i := 0; i < len(aParts) || i < len(bParts); i++ {
		av, bv := segmentAt(aParts, i), segmentAt(bParts, i)
		if av != bv {
			if av < bv {
				return -1, true
			}
			return 1, true
		}
	}
	return 0, true
}

func segmentAt(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

func parseVersionParts(v string) ([]int, bool) {
	if v == "" {
		return nil, false
	}
	pieces := strings.Split(v, ".")
	parts := make([]int, len(pieces))
	for i, piece := range pieces {
		n, err := strconv.Atoi(piece)
		if err != nil || piece == "" {
			return nil, false
		}
		parts[i] = n
	}
	return parts, true
}
