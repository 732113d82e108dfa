package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
)

// Deps carries the collaborators task handlers may use
type Deps struct {
	DB         *gorm.DB
	Billing    *services.BillingService
	Email      *services.EmailService
	WhatsApp   *services.WahaService
	AlertEmail string
	Log        *zap.Logger
}

// TaskHandler executes one scheduled task and returns a result map that is
// stored in the task history
type TaskHandler func(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error)

// Registry stores the mapping of task names to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]TaskHandler)}
}

// GlobalRegistry is the default global registry
var GlobalRegistry = NewRegistry()

// Register adds a handler for a task name
func (r *Registry) Register(name string, handler TaskHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Get retrieves a handler for a task name
func (r *Registry) Get(name string) (TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// Names lists the registered task names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// RegisterHandler is a helper to register to the global registry
func RegisterHandler(name string, handler TaskHandler) {
	GlobalRegistry.Register(name, handler)
}

// GetHandler is a helper to get from the global registry
func GetHandler(name string) (TaskHandler, bool) {
	return GlobalRegistry.Get(name)
}
