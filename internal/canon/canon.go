// Package canon canonicalizes page URLs so that repeat visits to the same
// logical page hash to the same identity. Canonicalization is conservative:
// obvious tracking noise is removed, meaningful query params are kept.
package canon

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var dropQueryPrefixes = []string{
	"utm_",
}

var dropQueryKeys = map[string]struct{}{
	"gclid": {}, "fbclid": {}, "msclkid": {},
	"ref": {}, "ref_src": {},
	"igshid": {},
	"mc_cid": {}, "mc_eid": {},
	"mkt_tok":     {},
	"trk":         {},
	"trkcampaign": {},
	"spm":         {}, "scm": {},
}

// URL returns the canonical form of raw: lowercase scheme and host, no
// fragment, no trailing-slash noise, tracking params stripped, remaining
// query params sorted for stability. If raw does not parse, it is returned
// unchanged rather than erroring; a stable-but-ugly identity beats none.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	type kv struct{ k, v string }
	var kept []kv
	for k, vs := range u.Query() {
		key := strings.ToLower(k)
		if _, drop := dropQueryKeys[key]; drop {
			continue
		}
		if hasDropPrefix(key) {
			continue
		}
		for _, v := range vs {
			if v == "" {
				continue
			}
			kept = append(kept, kv{key, v})
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].k != kept[j].k {
			return kept[i].k < kept[j].k
		}
		return kept[i].v < kept[j].v
	})

	q := url.Values{}
	for _, p := range kept {
		q.Add(p.k, p.v)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func hasDropPrefix(key string) bool {
	for _, p := range dropQueryPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Hash returns the content-independent identity of a page URL:
// "sha256:<hex>" over the canonical form.
func Hash(rawURL string) string {
	sum := sha256.Sum256([]byte(URL(rawURL)))
	return fmt.Sprintf("sha256:%x", sum)
}

// Domain extracts the lowercase hostname from a URL string. Returns ""
// when the URL does not parse.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
