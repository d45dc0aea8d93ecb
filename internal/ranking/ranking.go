// Package ranking trims a class map to the classes a reader asked for.
package ranking

import (
	"strings"

	"github.com/phobologic/classgraph/internal/model"
)

// SelectClasses returns a new ClassMap with only the top-ranked classes.
// Classes must already be sorted by rank. If maxClasses is <= 0 or
// >= len(classes), cm is returned unchanged.
func SelectClasses(cm *model.ClassMap, maxClasses int) *model.ClassMap {
	if maxClasses <= 0 || maxClasses >= len(cm.Classes) {
		return cm
	}

	selected := cm.Classes[:maxClasses]
	ids := make(map[string]struct{}, maxClasses)
	for i := range selected {
		ids[selected[i].ID] = struct{}{}
	}
	return subset(cm, selected, func(d *model.Dependency) bool {
		_, srcOK := ids[d.Source]
		_, tgtOK := ids[d.Target]
		return srcOK && tgtOK
	})
}

// FilterByClass returns a new ClassMap containing the classes whose id
// contains substr (case-insensitive), the classes they inject or are
// injected by, and the dependencies touching a matched class.
func FilterByClass(cm *model.ClassMap, substr string) *model.ClassMap {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	for i := range cm.Classes {
		if strings.Contains(strings.ToLower(cm.Classes[i].ID), lower) {
			matched[cm.Classes[i].ID] = struct{}{}
		}
	}

	touches := func(d *model.Dependency) bool {
		_, srcOK := matched[d.Source]
		_, tgtOK := matched[d.Target]
		return srcOK || tgtOK
	}

	related := make(map[string]struct{}, len(matched))
	for id := range matched {
		related[id] = struct{}{}
	}
	for i := range cm.Dependencies {
		d := &cm.Dependencies[i]
		if touches(d) {
			related[d.Source] = struct{}{}
			related[d.Target] = struct{}{}
		}
	}

	var classes []model.ClassNode
	for i := range cm.Classes {
		if _, ok := related[cm.Classes[i].ID]; ok {
			classes = append(classes, cm.Classes[i])
		}
	}
	return subset(cm, classes, touches)
}

// FilterByMixin returns a new ClassMap with only the classes carrying mixin
// and the dependencies among them.
func FilterByMixin(cm *model.ClassMap, mixin model.Mixin) *model.ClassMap {
	ids := make(map[string]struct{})
	var classes []model.ClassNode
	for i := range cm.Classes {
		if cm.Classes[i].HasMixin(mixin) {
			ids[cm.Classes[i].ID] = struct{}{}
			classes = append(classes, cm.Classes[i])
		}
	}
	return subset(cm, classes, func(d *model.Dependency) bool {
		_, srcOK := ids[d.Source]
		_, tgtOK := ids[d.Target]
		return srcOK && tgtOK
	})
}

func subset(cm *model.ClassMap, classes []model.ClassNode, keep func(*model.Dependency) bool) *model.ClassMap {
	var deps []model.Dependency
	for i := range cm.Dependencies {
		if keep(&cm.Dependencies[i]) {
			deps = append(deps, cm.Dependencies[i])
		}
	}
	return &model.ClassMap{
		Name:         cm.Name,
		Root:         cm.Root,
		Classes:      classes,
		Dependencies: deps,
	}
}
