package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	appver "faveswitch/internal/version"

	"github.com/gofiber/fiber/v3"
)

var (
	cacheMu      sync.Mutex
	cachedAt     time.Time
	cachedLatest string
	cacheTTL     = 6 * time.Hour
)

// GetVersion returns build version info and checks GitHub for the latest
// release tag when a repo is configured.
func GetVersion() fiber.Handler {
	return func(c fiber.Ctx) error {
		repo := appver.Repo
		if repo == "" {
			repo = os.Getenv("GIT_REPO")
		}
		info := appver.Info{
			Version: appver.Version,
			Commit:  appver.Commit,
			Date:    appver.Date,
			Repo:    repo,
		}
		info.LatestTag = latestRelease(repo)
		info.UpdateAvailable = newerThan(info.LatestTag, info.Version)
		return c.JSON(info)
	}
}

// latestRelease fetches the latest release tag from GitHub with simple caching.
func latestRelease(repo string) string {
	if repo == "" {
		return ""
	}
	cacheMu.Lock()
	if time.Since(cachedAt) < cacheTTL && cachedLatest != "" {
		tag := cachedLatest
		cacheMu.Unlock()
		return tag
	}
	cacheMu.Unlock()

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", repo)
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("User-Agent", "faveswitch")
	res, err := client.Do(req)
	if err != nil || res.StatusCode >= 400 {
		return ""
	}
	defer res.Body.Close()
	var v struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil || v.TagName == "" {
		return ""
	}

	cacheMu.Lock()
	cachedLatest = v.TagName
	cachedAt = time.Now()
	cacheMu.Unlock()
	return v.TagName
}

var semverRe = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+).*`)

// newerThan reports whether latest is newer than current using basic semver.
func newerThan(latest, current string) bool {
	if latest == "" || current == "" {
		return false
	}
	l := semverRe.FindStringSubmatch(latest)
	c := semverRe.FindStringSubmatch(current)
	if len(l) == 0 || len(c) == 0 {
		return latest != current
	}
	for i := 1; i <= 3; i++ {
		ln, _ := strconv.Atoi(l[i])
		cn, _ := strconv.Atoi(c[i])
		if ln > cn {
			return true
		}
		if ln < cn {
			return false
		}
	}
	return false
}
