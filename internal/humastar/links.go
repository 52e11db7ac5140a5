package humastar

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds RFC 8288 Link headers per operation path, derived from the
// OpenAPI document.
type Links struct {
	mu    sync.RWMutex
	paths map[string][]string
}

// NewLinks returns an empty link table.
func NewLinks() *Links {
	return &Links{paths: map[string][]string{}}
}

// Discover walks the registered operations and links items to their
// collections, collections to their items, and the entry point to every
// collection. Operations tagged with one of skip are left out. Call after
// all routes are registered; the transformer can be installed before.
func (l *Links) Discover(api huma.API, skip ...string) {
	oapi := api.OpenAPI()

	var collections, items []string
	for p, pi := range oapi.Paths {
		if hasAnyTag(primaryTags(pi), skip) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	sort.Strings(collections)
	sort.Strings(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.Add(item, parent, "collection")
			l.Add(item, parent, "up")
		}
	}
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.Add(coll, item, "item")
			}
		}
		if oapi.Paths[coll].Post != nil {
			l.Add(coll, coll, "create-form")
		}
		if coll != "/health" {
			l.Add(coll, "/health", "up")
			l.Add("/health", coll, lastSegment(coll))
		}
	}
	l.Add("/health", "/openapi.json", "describedby")
	l.Add("/health", "/openapi.json", "service-desc")
	l.Add("/health", "/docs", "service-doc")

	for p, pi := range oapi.Paths {
		headers := l.For(p)
		for _, op := range operationsOf(pi) {
			if op != nil && len(headers) > 0 {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// Add links from to target with rel, once.
func (l *Links) Add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.paths[from] {
		if existing == val {
			return
		}
	}
	l.paths[from] = append(l.paths[from], val)
}

// For returns the Link headers of an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.paths[opPath]...)
}

// Transformer returns a Huma transformer that writes the Link headers of
// the operation, a self link for item paths, and the pagination and action
// links of bodies implementing Pager or Actor.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func hasAnyTag(tags, want []string) bool {
	for _, t := range tags {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks documents the links on the operation's success
// response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  "Related: " + rel,
		}
	}
}

func parseLinkHeader(h string) (rel, href string) {
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
