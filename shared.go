package itemsync

import (
	"context"
	"fmt"
	"sync"
)

var shared = sync.OnceValue(func() *Controller {
	ctx := context.Background()
	c, err := New(ctx)
	if err != nil {
		// default options always validate
		panic(fmt.Sprintf("itemsync: building shared controller: %v", err))
	}
	c.Start(ctx)
	return c
})

// Shared returns the process-wide [Controller], building and starting it
// with default options on first use. Concurrent first calls build exactly
// one instance.
//
// Prefer [New] and passing the controller to its consumers; Shared exists
// for code that cannot be handed one.
func Shared() *Controller {
	return shared()
}
