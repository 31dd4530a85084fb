package hive

import (
	"fmt"
	"testing"
)

func benchmarkTree(b *testing.B, opts ...Option) Node {
	b.Helper()
	root := New(opts...)
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			if err := root.Set(fmt.Sprintf("section_%d.group_%d.limit", i, j), i*j); err != nil {
				b.Fatalf("set: %v", err)
			}
		}
	}
	return root
}

func BenchmarkGetDeepPath(b *testing.B) {
	root := benchmarkTree(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := root.Get("section_9.group_9.limit"); err != nil {
			b.Fatalf("get: %v", err)
		}
	}
}

func BenchmarkGetWithObserver(b *testing.B) {
	root := benchmarkTree(b)
	root.Attach(ObserverFunc(func(Observation) {}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := root.Get("section_9.group_9.limit"); err != nil {
			b.Fatalf("get: %v", err)
		}
	}
}

func BenchmarkSetReplace(b *testing.B) {
	root := benchmarkTree(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := root.Set("section_5.group_5.limit", i); err != nil {
			b.Fatalf("set: %v", err)
		}
	}
}

func BenchmarkSetWithAssertRule(b *testing.B) {
	root := NewDeclarative(WithProgramCache(NewMemoryProgramCache()))
	if err := root.EntityAssert("limits.daily", "value >= 0"); err != nil {
		b.Fatalf("entity assert: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := root.Set("limits.daily", i); err != nil {
			b.Fatalf("set: %v", err)
		}
	}
}
