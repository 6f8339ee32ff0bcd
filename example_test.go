package reticula_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/pkg/adapters/memory"
)

// ExampleNew shows an engine rooted on an outgroup with an in-memory cache.
func ExampleNew() {
	eng := reticula.New(
		reticula.WithOutgroup("A"),
		reticula.WithCache(memory.NewCache()),
	)

	input := "((A,B),(C,(D,E)));((B,A),((E,D),C));"
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		inf, err := eng.Infer(ctx, input)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(inf.Newick, inf.Reticulations, inf.Cached)
	}
	// Output:
	// (A,(B,(C,(D,E)))); 0 false
	// (A,(B,(C,(D,E)))); 0 true
}

func ExampleInfer() {
	_, err := reticula.Infer("((A,B),(C,D)")
	fmt.Println(err != nil)
	// Output: true
}
