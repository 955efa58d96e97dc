/*
Package container provides dependency injection capabilities for the feed sync service.

This package implements a simple dependency injection container that helps manage
service dependencies and reduces tight coupling between components.
*/
package container

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Nexora-Open-Source/job-feed-sync/feedsync"
	"github.com/Nexora-Open-Source/job-feed-sync/handlers"
	"github.com/Nexora-Open-Source/job-feed-sync/handlers/health"
	"github.com/Nexora-Open-Source/job-feed-sync/monitoring"
	"github.com/Nexora-Open-Source/job-feed-sync/store"
	"github.com/sirupsen/logrus"
)

// Service names
const (
	ServiceLogger       = "logger"
	ServiceStore        = "store"
	ServiceOrchestrator = "orchestrator"
	ServiceAsync        = "async"
	ServiceAlerts       = "alerts"
	ServiceHandler      = "handler"
)

type closer struct {
	name string
	fn   func() error
}

// Container holds all service dependencies
type Container struct {
	mu         sync.RWMutex
	services   map[string]interface{}
	factories  map[string]func() (interface{}, error)
	singletons map[string]interface{}
	closers    []closer
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		services:   make(map[string]interface{}),
		factories:  make(map[string]func() (interface{}, error)),
		singletons: make(map[string]interface{}),
	}
}

// Register registers a service instance
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterFactory registers a factory function for lazy service creation
func (c *Container) RegisterFactory(name string, factory func() (interface{}, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// RegisterSingleton registers a singleton service
func (c *Container) RegisterSingleton(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[name] = service
}

// OnClose registers a shutdown hook. Hooks run in reverse registration order.
func (c *Container) OnClose(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, closer{name: name, fn: fn})
}

// Get retrieves a service by name
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.RLock()
	service, isService := c.services[name]
	singleton, isSingleton := c.singletons[name]
	factory, hasFactory := c.factories[name]
	c.mu.RUnlock()

	switch {
	case isService:
		return service, nil
	case isSingleton:
		return singleton, nil
	case hasFactory:
		// Factories run outside the lock so they may resolve other services.
		created, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service %s: %w", name, err)
		}
		return created, nil
	}

	return nil, fmt.Errorf("service %s not found", name)
}

func get[T any](c *Container, name string) (T, error) {
	var zero T
	service, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("%s service is not of expected type", name)
	}
	return typed, nil
}

// GetLogger retrieves the logger service
func (c *Container) GetLogger() (*logrus.Logger, error) {
	return get[*logrus.Logger](c, ServiceLogger)
}

// GetStore retrieves the feed/job/audit store
func (c *Container) GetStore() (store.Store, error) {
	return get[store.Store](c, ServiceStore)
}

// GetOrchestrator retrieves the sync orchestrator
func (c *Container) GetOrchestrator() (*feedsync.Orchestrator, error) {
	return get[*feedsync.Orchestrator](c, ServiceOrchestrator)
}

// GetAsyncProcessor retrieves the async sync queue
func (c *Container) GetAsyncProcessor() (*handlers.AsyncProcessor, error) {
	return get[*handlers.AsyncProcessor](c, ServiceAsync)
}

// GetAlertManager retrieves the alert manager
func (c *Container) GetAlertManager() (*monitoring.AlertManager, error) {
	return get[*monitoring.AlertManager](c, ServiceAlerts)
}

// GetHandler retrieves the handler service
func (c *Container) GetHandler() (*handlers.Handler, error) {
	return get[*handlers.Handler](c, ServiceHandler)
}

// InitializeServices registers the core services and the handler factory
func (c *Container) InitializeServices(st store.Store, orchestrator *feedsync.Orchestrator, async *handlers.AsyncProcessor, logger *logrus.Logger, checks ...health.Check) error {
	if st == nil || orchestrator == nil || logger == nil {
		return errors.New("store, orchestrator and logger are required")
	}

	c.RegisterSingleton(ServiceLogger, logger)
	c.RegisterSingleton(ServiceStore, st)
	c.RegisterSingleton(ServiceOrchestrator, orchestrator)
	if orchestrator.Alerts != nil {
		c.RegisterSingleton(ServiceAlerts, orchestrator.Alerts)
	}

	var asyncProcessor handlers.AsyncProcessorInterface
	if async != nil {
		c.RegisterSingleton(ServiceAsync, async)
		asyncProcessor = async
	}

	c.RegisterFactory(ServiceHandler, func() (interface{}, error) {
		return handlers.NewHandler(orchestrator, st, asyncProcessor, logger, checks...), nil
	})

	return nil
}

// Close runs every shutdown hook and returns the joined errors
func (c *Container) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", closers[i].name, err))
		}
	}
	return errors.Join(errs...)
}
