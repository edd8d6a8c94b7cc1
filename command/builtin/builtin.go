// Package builtin holds the commands primon ships with.
package builtin

import (
	"time"

	"github.com/ryanreadbooks/primon/command"
	"github.com/ryanreadbooks/primon/greeting"
)

type Deps struct {
	Store    greeting.Store
	Renderer Renderer
	// Now is the clock used by ping, time.Now when nil.
	Now func() time.Time
}

// Register adds every builtin command to reg in menu order.
func Register(reg *command.Registry, deps Deps) {
	reg.MustRegister(
		Menu(reg),
		TagAll(),
		Greeting(greeting.TypeWelcome, deps.Store),
		Greeting(greeting.TypeGoodbye, deps.Store),
		Edit(deps.Store),
		Ping(deps.Now),
		Alive(deps.Store, deps.Renderer),
	)
}
