// Package graph derives the injection graph of a class set and ranks its
// classes with PageRank.
package graph

import (
	"maps"
	"math"
	"slices"
	"sort"

	"github.com/phobologic/classgraph/internal/model"
)

// BuildGraph creates one dependency per (injecting class, injected class)
// pair, listing the properties that carry the injection. Injections of
// classes outside the set and self-injections are left out.
func BuildGraph(classes []model.ClassNode) []model.Dependency {
	known := make(map[string]struct{}, len(classes))
	for i := range classes {
		known[classes[i].ID] = struct{}{}
	}

	type edgeKey struct{ src, tgt string }
	props := make(map[edgeKey][]string)
	for i := range classes {
		c := &classes[i]
		for _, inj := range c.Injectors {
			if inj.ClassID == c.ID {
				continue
			}
			if _, ok := known[inj.ClassID]; !ok {
				continue
			}
			key := edgeKey{c.ID, inj.ClassID}
			if !slices.Contains(props[key], inj.PropertyName) {
				props[key] = append(props[key], inj.PropertyName)
			}
		}
	}

	deps := make([]model.Dependency, 0, len(props))
	for key, names := range props {
		deps = append(deps, model.Dependency{Source: key.src, Target: key.tgt, Properties: names})
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})
	return deps
}

// Dependents returns the ids of classes that inject classID, sorted.
func Dependents(deps []model.Dependency, classID string) []string {
	var out []string
	for _, d := range deps {
		if d.Target == classID {
			out = append(out, d.Source)
		}
	}
	sort.Strings(out)
	return out
}

// Rank sets each class's Rank by PageRank over deps, where every injected
// property is one edge from injector to injected, and sorts classes by rank
// descending. Ties keep id order.
func Rank(classes []model.ClassNode, deps []model.Dependency) {
	if len(classes) == 0 {
		return
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(classes))
		for i := range classes {
			classes[i].Rank = uniform
		}
		return
	}

	nodes := make(map[string]struct{}, len(classes))
	for i := range classes {
		nodes[classes[i].ID] = struct{}{}
	}
	out := make(map[string][]string)
	for _, d := range deps {
		for range d.Properties {
			out[d.Source] = append(out[d.Source], d.Target)
		}
	}

	ranks := pageRank(nodes, out, 0.85, 100, 1e-6)
	for i := range classes {
		classes[i].Rank = ranks[classes[i].ID]
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].Rank > classes[j].Rank
	})
}

// pageRank runs the power iteration. Rank of nodes without outgoing edges
// is spread evenly over all nodes.
func pageRank(nodes map[string]struct{}, out map[string][]string, alpha float64, maxIter int, tol float64) map[string]float64 {
	n := float64(len(nodes))
	ids := slices.Sorted(maps.Keys(nodes))

	rank := make(map[string]float64, len(ids))
	for _, id := range ids {
		rank[id] = 1 / n
	}

	for range maxIter {
		var dangling float64
		for _, id := range ids {
			if len(out[id]) == 0 {
				dangling += rank[id]
			}
		}
		base := (1-alpha)/n + alpha*dangling/n

		next := make(map[string]float64, len(ids))
		for _, id := range ids {
			next[id] = base
		}
		for _, src := range ids {
			targets := out[src]
			if len(targets) == 0 {
				continue
			}
			share := alpha * rank[src] / float64(len(targets))
			for _, tgt := range targets {
				next[tgt] += share
			}
		}

		var diff float64
		for _, id := range ids {
			diff += math.Abs(next[id] - rank[id])
		}
		rank = next
		if diff < tol {
			break
		}
	}
	return rank
}
