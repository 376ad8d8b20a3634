// Package update checks the public releases feed for a newer build.
// Checks are rate-limited to one network hit per interval, remembered
// across runs in a stamp file under the data directory.
package update

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v2"

	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
	"github.com/webverselabs/webverse/internal/log"
)

// DefaultFeedURL is the latest-release endpoint for the public
// distribution; override with WEBVERSE_RELEASES_URL.
const DefaultFeedURL = "https://api.github.com/repos/webverselabs/webverse/releases/latest"

const (
	checkInterval = 6 * time.Hour
	feedTimeout   = 6 * time.Second
	stampFile     = "update-check.yaml"
)

// Info describes a release newer than the running build
type Info struct {
	LatestVersion string
	URL           string
	Notes         string
}

// Checker polls the releases feed. A Checker is safe to build on every
// command run; the stamp file keeps repeated runs quiet.
type Checker struct {
	feedURL   string
	version   string
	stampPath string
	client    *req.Client
	now       func() time.Time
}

// stamp is the persisted record of the last feed poll. The timestamp
// is kept as unix seconds.
type stamp struct {
	CheckedAt int64  `yaml:"checked_at"`
	Latest    string `yaml:"latest"`
	URL       string `yaml:"url"`
}

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
}

// FeedURL resolves the releases feed URL from the environment
func FeedURL() string {
	if v := strings.TrimSpace(os.Getenv("WEBVERSE_RELEASES_URL")); v != "" {
		return v
	}
	return DefaultFeedURL
}

// New creates a checker for the given running version. The stamp file
// lives under dataDir next to the rest of the per-user state.
func New(dataDir, version string) *Checker {
	return &Checker{
		feedURL:   FeedURL(),
		version:   version,
		stampPath: filepath.Join(dataDir, stampFile),
		client: req.C().
			SetUserAgent("WebVerse-OSS/" + version).
			SetTimeout(feedTimeout),
		now: time.Now,
	}
}

// Check reports a newer release, or nil when the build is current.
// Without force the feed is polled at most once per interval; inside
// the interval the remembered result is reused without a network hit.
func (c *Checker) Check(ctx context.Context, force bool) (*Info, error) {
	if !force {
		if s, ok := c.readStamp(); ok && c.now().Sub(time.Unix(s.CheckedAt, 0)) < checkInterval {
			if newer(s.Latest, c.version) {
				return &Info{LatestVersion: s.Latest, URL: s.URL}, nil
			}
			return nil, nil
		}
	}

	var rel release
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetSuccessResult(&rel).
		Get(c.feedURL)
	if err != nil {
		return nil, wverrors.Wrapf(wverrors.ErrAPIConnection, "release feed: %v", err)
	}
	if resp.StatusCode != 200 {
		return nil, wverrors.Wrapf(wverrors.ErrAPIResponse, "release feed returned %d", resp.StatusCode)
	}

	latest := strings.TrimPrefix(strings.TrimSpace(rel.TagName), "v")
	if latest == "" {
		return nil, nil
	}

	c.writeStamp(stamp{CheckedAt: c.now().Unix(), Latest: latest, URL: strings.TrimSpace(rel.HTMLURL)})

	if !newer(latest, c.version) {
		return nil, nil
	}
	return &Info{
		LatestVersion: latest,
		URL:           strings.TrimSpace(rel.HTMLURL),
		Notes:         strings.TrimSpace(rel.Body),
	}, nil
}

// newer compares release versions. Unparseable versions (development
// builds report "dev") never count as outdated.
func newer(latest, current string) bool {
	lv := "v" + strings.TrimPrefix(latest, "v")
	cv := "v" + strings.TrimPrefix(current, "v")
	if !semver.IsValid(lv) || !semver.IsValid(cv) {
		return false
	}
	return semver.Compare(lv, cv) > 0
}

func (c *Checker) readStamp() (stamp, bool) {
	var s stamp
	data, err := os.ReadFile(c.stampPath)
	if err != nil {
		return s, false
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, false
	}
	return s, s.CheckedAt > 0
}

// writeStamp is best effort; a failed write only means the next run
// polls the feed again.
func (c *Checker) writeStamp(s stamp) {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.stampPath), 0o755); err != nil {
		log.Debug("Failed to create data dir for update stamp: %v", err)
		return
	}
	if err := os.WriteFile(c.stampPath, data, 0o644); err != nil {
		log.Debug("Failed to persist update stamp: %v", err)
	}
}
