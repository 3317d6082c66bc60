package collection

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/modcollect/modcollect/pkg/errors"
)

// Info is a parsed collection page URL.
type Info struct {
	GameDomain string
	Slug       string
	URL        string
}

// ModInfo is a parsed mod page URL.
type ModInfo struct {
	GameDomain string
	ModID      int64
	URL        string
}

var (
	collectionPathRE = regexp.MustCompile(`^/(?:games/)?([^/]+)/collections/([^/?]+)`)
	modPathRE        = regexp.MustCompile(`^/([^/]+)/mods/(\d+)`)
)

var knownHosts = map[string]bool{
	"next.nexusmods.com": true,
	"www.nexusmods.com":  true,
	"nexusmods.com":      true,
}

// ParseCollectionURL parses a collection page URL of either form
// https://next.nexusmods.com/{game}/collections/{slug} or
// https://www.nexusmods.com/games/{game}/collections/{slug},
// with or without query parameters.
func ParseCollectionURL(rawURL string) (*Info, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrURLInvalid, "cannot parse collection URL")
	}
	if !knownHosts[parsed.Host] {
		return nil, errors.Newf(errors.ErrURLInvalid,
			"invalid domain %q, expected next.nexusmods.com", parsed.Host)
	}

	match := collectionPathRE.FindStringSubmatch(parsed.Path)
	if match == nil {
		return nil, errors.Newf(errors.ErrURLInvalid,
			"invalid collection URL format: %s", rawURL)
	}

	gameDomain, slug := match[1], match[2]
	return &Info{
		GameDomain: gameDomain,
		Slug:       slug,
		URL:        fmt.Sprintf("https://next.nexusmods.com/%s/collections/%s", gameDomain, slug),
	}, nil
}

// ParseModURL parses a mod page URL of the form
// https://www.nexusmods.com/{game}/mods/{id}.
func ParseModURL(rawURL string) (*ModInfo, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrURLInvalid, "cannot parse mod URL")
	}
	if !knownHosts[parsed.Host] {
		return nil, errors.Newf(errors.ErrURLInvalid,
			"invalid domain %q, expected nexusmods.com", parsed.Host)
	}

	match := modPathRE.FindStringSubmatch(parsed.Path)
	if match == nil {
		return nil, errors.Newf(errors.ErrURLInvalid, "invalid mod URL format: %s", rawURL)
	}

	modID, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrURLInvalid, "invalid mod id in %s", rawURL)
	}

	gameDomain := match[1]
	return &ModInfo{
		GameDomain: gameDomain,
		ModID:      modID,
		URL:        fmt.Sprintf("https://www.nexusmods.com/%s/mods/%d", gameDomain, modID),
	}, nil
}
