package class_test

import (
	"sync"
	"testing"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/classfile"
)

func fixtureWithSuper() classfile.FixtureSource {
	return classfile.FixtureSource{
		"java/lang/Object": &classfile.ClassView{Name: "java/lang/Object"},
		"Animal": &classfile.ClassView{
			Name:      "Animal",
			SuperName: "java/lang/Object",
			Fields: []classfile.FieldView{
				{Name: "name", Descriptor: "Ljava/lang/String;"},
			},
		},
		"Dog": &classfile.ClassView{
			Name:      "Dog",
			SuperName: "Animal",
			Fields: []classfile.FieldView{
				{Name: "breed", Descriptor: "Ljava/lang/String;"},
			},
		},
	}
}

func TestTableGetResolvesSuperclassChain(t *testing.T) {
	table := class.NewTable(fixtureWithSuper())

	dog, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	if dog.Parent == nil || dog.Parent.View.Name != "Animal" {
		t.Fatalf("Dog.Parent = %v, want Animal", dog.Parent)
	}

	if dog.Parent.Parent == nil || dog.Parent.Parent.View.Name != "java/lang/Object" {
		t.Fatalf("Dog.Parent.Parent = %v, want java/lang/Object", dog.Parent.Parent)
	}
}

func TestTableGetCachesByName(t *testing.T) {
	table := class.NewTable(fixtureWithSuper())

	first, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	second, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	if first != second {
		t.Error("Get returned different *RuntimeClass instances for the same name")
	}
}

func TestTableGetUnknownClass(t *testing.T) {
	table := class.NewTable(classfile.FixtureSource{})

	if _, err := table.Get("NoSuchClass"); err == nil {
		t.Fatal("expected an error for an unknown class")
	}
}

func TestObjectLayoutInheritsParentFieldNumbers(t *testing.T) {
	table := class.NewTable(fixtureWithSuper())

	dog, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	animalNum, ok := dog.Parent.Layout.FieldNumber("name")
	if !ok {
		t.Fatal("Animal.Layout has no field number for \"name\"")
	}

	dogNum, ok := dog.Layout.FieldNumber("name")
	if !ok {
		t.Fatal("Dog.Layout does not inherit \"name\"")
	}

	if animalNum != dogNum {
		t.Errorf("inherited field renumbered: Animal=%d Dog=%d", animalNum, dogNum)
	}

	if _, ok := dog.Layout.FieldNumber("breed"); !ok {
		t.Error("Dog.Layout missing its own field \"breed\"")
	}
}

func TestEnsureInitializedRunsOnce(t *testing.T) {
	table := class.NewTable(fixtureWithSuper())

	rc, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	var runs int
	clinit := func() error {
		runs++
		return nil
	}

	if err := rc.EnsureInitialized(1, clinit); err != nil {
		t.Fatalf("EnsureInitialized: %s", err)
	}

	if err := rc.EnsureInitialized(1, clinit); err != nil {
		t.Fatalf("EnsureInitialized (second call): %s", err)
	}

	if runs != 1 {
		t.Errorf("<clinit> ran %d times, want 1", runs)
	}

	if rc.Status() != class.StatusInitialized {
		t.Errorf("Status = %s, want Initialized", rc.Status())
	}
}

func TestEnsureInitializedBlocksOtherGoroutines(t *testing.T) {
	table := class.NewTable(fixtureWithSuper())

	rc, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	started := make(chan struct{})
	proceed := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		rc.EnsureInitialized(1, func() error {
			close(started)
			<-proceed
			return nil
		})
	}()

	<-started

	done := make(chan struct{})
	go func() {
		rc.EnsureInitialized(2, func() error {
			t.Error("<clinit> ran twice, once per racing goroutine")
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second EnsureInitialized returned before the first finished")
	default:
	}

	close(proceed)
	<-done
	wg.Wait()
}

func TestBitPathPackUnpackRoundTrip(t *testing.T) {
	table := class.NewTable(fixtureWithSuper())

	dog, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	word := dog.BitPath.Pack()
	back := class.UnpackBitPath(word)

	if back.Pack() != word {
		t.Errorf("Pack/UnpackBitPath round trip mismatch: %#x != %#x", back.Pack(), word)
	}
}

func TestBitPathIsPrefixOf(t *testing.T) {
	table := class.NewTable(fixtureWithSuper())

	dog, err := table.Get("Dog")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	animal := dog.Parent

	if result := animal.BitPath.IsPrefixOf(dog.BitPath); result != class.True {
		t.Errorf("Animal.BitPath.IsPrefixOf(Dog.BitPath) = %v, want True", result)
	}

	if result := dog.BitPath.IsPrefixOf(animal.BitPath); result != class.False {
		t.Errorf("Dog.BitPath.IsPrefixOf(Animal.BitPath) = %v, want False", result)
	}
}

func TestLookupCachePopulateAndLookup(t *testing.T) {
	c := class.NewLookupCache(8)
	site := class.CallSite{MethodID: 1, BCI: 10}

	if _, ok := c.Lookup(site, 5); ok {
		t.Fatal("Lookup on an empty cache returned a hit")
	}

	c.Populate(site, 5, 0xdead)

	target, ok := c.Lookup(site, 5)
	if !ok || target != 0xdead {
		t.Errorf("Lookup after Populate = (%#x, %v), want (0xdead, true)", target, ok)
	}

	if _, ok := c.Lookup(site, 6); ok {
		t.Error("Lookup with a different receiver hit the wrong entry")
	}
}

func TestInterfaceIDsWalksAncestors(t *testing.T) {
	source := classfile.FixtureSource{
		"java/lang/Object": &classfile.ClassView{Name: "java/lang/Object"},
		"Comparable": &classfile.ClassView{
			Name:        "Comparable",
			AccessFlags: classfile.AccInterface,
		},
		"Base": &classfile.ClassView{
			Name:       "Base",
			SuperName:  "java/lang/Object",
			Interfaces: []string{"Comparable"},
		},
		"Derived": &classfile.ClassView{
			Name:      "Derived",
			SuperName: "Base",
		},
	}

	table := class.NewTable(source)

	derived, err := table.Get("Derived")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	comparable, err := table.Get("Comparable")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	ids := class.InterfaceIDs(derived)
	if !class.Implements(ids, comparable.ID) {
		t.Error("Derived does not report implementing Comparable via its superclass")
	}
}
