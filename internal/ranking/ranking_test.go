package ranking

import (
	"testing"

	"github.com/phobologic/classgraph/internal/model"
)

func node(id string, rank float64, mixins ...model.Mixin) model.ClassNode {
	return model.ClassNode{ClassRecord: model.ClassRecord{ID: id, Mixins: mixins}, Rank: rank}
}

func makeClassMap() *model.ClassMap {
	return &model.ClassMap{
		Name: "test",
		Root: "test",
		Classes: []model.ClassNode{
			node("Api", 0.5),
			node("Store", 0.3, model.ObservableState),
			node("CartView", 0.2, model.ObservableState, model.View),
			node("Logger", 0.1),
		},
		Dependencies: []model.Dependency{
			{Source: "Store", Target: "Api", Properties: []string{"api"}},
			{Source: "CartView", Target: "Store", Properties: []string{"store"}},
			{Source: "CartView", Target: "Api", Properties: []string{"api"}},
		},
	}
}

func ids(cm *model.ClassMap) []string {
	out := make([]string, len(cm.Classes))
	for i := range cm.Classes {
		out[i] = cm.Classes[i].ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelectClassesAll(t *testing.T) {
	t.Parallel()

	cm := makeClassMap()
	for _, n := range []int{0, 4, 10} {
		if got := SelectClasses(cm, n); got != cm {
			t.Errorf("maxClasses=%d should return original", n)
		}
	}
}

func TestSelectClassesSubset(t *testing.T) {
	t.Parallel()

	got := SelectClasses(makeClassMap(), 2)
	if !equal(ids(got), []string{"Api", "Store"}) {
		t.Fatalf("classes = %v", ids(got))
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].Source != "Store" {
		t.Errorf("expected only Store->Api, got %+v", got.Dependencies)
	}
}

func TestFilterByClass(t *testing.T) {
	t.Parallel()

	got := FilterByClass(makeClassMap(), "store")
	if !equal(ids(got), []string{"Api", "Store", "CartView"}) {
		t.Fatalf("classes = %v", ids(got))
	}
	// CartView->Api touches no matched class.
	if len(got.Dependencies) != 2 {
		t.Errorf("expected 2 deps, got %+v", got.Dependencies)
	}

	none := FilterByClass(makeClassMap(), "nothing")
	if len(none.Classes) != 0 || len(none.Dependencies) != 0 {
		t.Errorf("expected empty map, got %+v", none)
	}
}

func TestFilterByMixin(t *testing.T) {
	t.Parallel()

	got := FilterByMixin(makeClassMap(), model.ObservableState)
	if !equal(ids(got), []string{"Store", "CartView"}) {
		t.Fatalf("classes = %v", ids(got))
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].Target != "Store" {
		t.Errorf("expected only CartView->Store, got %+v", got.Dependencies)
	}
}
