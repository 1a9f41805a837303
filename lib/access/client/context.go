package client

import (
	"time"

	"github.com/ValentinKolb/dAX/lib/access/concepts"
	"github.com/ValentinKolb/dAX/lib/actor"
)

// --------------------------------------------------------------------------
// Client Context
// --------------------------------------------------------------------------

// Context bundles the identity of one client actor with the executor its
// behavior runs on. It is shared by the behavior and all its connections.
type Context struct {
	identifier    concepts.ClientID
	persistenceID string
	executor      *actor.Executor
	config        Config
}

// NewContext creates a context for the given client identity. The executor
// becomes the behavior's actor goroutine.
func NewContext(id concepts.ClientID, executor *actor.Executor, config Config) *Context {
	return &Context{
		identifier:    id,
		persistenceID: id.FrontendName,
		executor:      executor,
		config:        config,
	}
}

// Identifier returns the client's identity.
func (c *Context) Identifier() concepts.ClientID {
	return c.identifier
}

// PersistenceID returns the stable name used in log messages.
func (c *Context) PersistenceID() string {
	return c.persistenceID
}

// Execute runs fn on the actor goroutine.
func (c *Context) Execute(fn func()) bool {
	return c.executor.Execute(fn)
}

// ExecuteAfter runs fn on the actor goroutine after delay.
func (c *Context) ExecuteAfter(fn func(), delay time.Duration) bool {
	return c.executor.ExecuteAfter(fn, delay)
}

// Config returns the client configuration.
func (c *Context) Config() Config {
	return c.config
}
