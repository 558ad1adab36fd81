package converter

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

var (
	formatSuffix = regexp.MustCompile(`\(\.[^)]*\)$`)
	placeholder  = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)
)

// NormalizePath strips the (.:format) suffix, substitutes :version and
// rewrites :name placeholders as {name}.
func NormalizePath(raw string, cfg route.Config) string {
	p := formatSuffix.ReplaceAllString(strings.TrimSpace(raw), "")
	return placeholder.ReplaceAllStringFunc(p, func(m string) string {
		name := m[1:]
		if name == "version" && cfg.APIVersion != "" {
			return cfg.APIVersion
		}
		return "{" + name + "}"
	})
}

// IsWildcard reports catch-all routes, which are never documented.
func IsWildcard(method, path string) bool {
	if strings.TrimSpace(method) == route.WildcardMethod {
		return true
	}
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "*") {
			return true
		}
	}
	return false
}

// PathConverter groups routes by normalized path and converts each group
// into a path item.
type PathConverter struct {
	gen *Generator
}

type pathGroup struct {
	path   string
	routes []route.Route
	seqs   []int // input position of each route
}

type convertedOp struct {
	seq    int
	method string
	op     *spec.Operation
}

// Convert returns the path items keyed by normalized path together with the
// paths in first-appearance order.
func (c *PathConverter) Convert(routes []route.Route) (map[string]spec.PathItem, []string, error) {
	var groups []*pathGroup
	index := make(map[string]*pathGroup)
	for seq, r := range routes {
		if IsWildcard(r.Method, r.Path) {
			c.gen.logger.Debug("skipping wildcard route", "method", r.Method, "path", r.Path)
			continue
		}
		path := NormalizePath(r.Path, c.gen.cfg)
		g, ok := index[path]
		if !ok {
			g = &pathGroup{path: path}
			index[path] = g
			groups = append(groups, g)
		}
		g.routes = append(g.routes, r)
		g.seqs = append(g.seqs, seq)
	}

	results := make([][]convertedOp, len(groups))
	var eg errgroup.Group
	eg.SetLimit(c.gen.opts.concurrency)
	for i, g := range groups {
		eg.Go(func() error {
			results[i] = c.convertGroup(g)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	items := make(map[string]spec.PathItem, len(groups))
	order := make([]string, 0, len(groups))
	var kept []convertedOp
	for i, g := range groups {
		item := spec.PathItem{}
		byMethod := make(map[string]convertedOp)
		for _, co := range results[i] {
			// a later route for the same method replaces the earlier one
			item[co.method] = co.op
			byMethod[co.method] = co
		}
		if len(item) == 0 {
			continue
		}
		for _, m := range sortedMethods(item) {
			kept = append(kept, byMethod[m])
		}
		items[g.path] = item
		order = append(order, g.path)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].seq < kept[j].seq })
	c.dedupeOperationIDs(kept)
	for _, co := range kept {
		if co.op.RequestBody != nil {
			c.gen.bodies.Register(co.op.OperationID, co.op.RequestBody)
		}
	}
	return items, order, nil
}

func (c *PathConverter) convertGroup(g *pathGroup) []convertedOp {
	entities := NewEntityConverter(c.gen.schemas, c.gen.logger)
	responses := NewResponseConverter(entities, c.gen.logger)
	operations := NewOperationConverter(c.gen.cfg, responses, c.gen.opts.sanitize)
	params := NewParameterConverter(c.gen.logger)
	bodies := NewRequestBodyConverter(c.gen.logger)

	out := make([]convertedOp, 0, len(g.routes))
	for i, r := range g.routes {
		op := operations.Convert(r, g.path)
		op.Parameters = params.ConvertAll(r, g.path)
		op.RequestBody = bodies.Convert(r, g.path)
		out = append(out, convertedOp{seq: g.seqs[i], method: strings.ToLower(r.Method), op: op})
	}
	return out
}

// dedupeOperationIDs appends 2, 3, ... to repeated ids. ops must be in
// route order; the first route keeps the bare id.
func (c *PathConverter) dedupeOperationIDs(ops []convertedOp) {
	used := make(map[string]bool, len(ops))
	for _, co := range ops {
		id := co.op.OperationID
		if used[id] {
			n := 2
			for used[id+strconv.Itoa(n)] {
				n++
			}
			renamed := id + strconv.Itoa(n)
			c.gen.logger.Warn("duplicate operation id", "id", id, "method", co.method, "renamed", renamed)
			id = renamed
			co.op.OperationID = id
		}
		used[id] = true
	}
}

var methodRank = map[string]int{
	"get": 0, "post": 1, "put": 2, "patch": 3, "delete": 4, "head": 5, "options": 6,
}

func sortedMethods(item spec.PathItem) []string {
	methods := make([]string, 0, len(item))
	for m := range item {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool {
		ri, iok := methodRank[methods[i]]
		rj, jok := methodRank[methods[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return methods[i] < methods[j]
		}
	})
	return methods
}
