package binding

import (
	"fmt"
	"os"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
)

/**
 * @brief ShaderModule wraps one compiled shader binary with a per-device cache
 * of native modules. Pipelines built from it register themselves as observers;
 * reloading the binary (shader hot-reload) discards every cached native module
 * and invalidates those pipelines.
 */
type ShaderModule struct {
	mu        sync.Mutex
	fileName  string
	code      []byte
	perDevice map[Device]ShaderModuleHandle
	observers []Invalidatable
}

// NewShaderModule wraps an in-memory shader binary.
func NewShaderModule(code []byte) *ShaderModule {
	return &ShaderModule{
		code:      code,
		perDevice: make(map[Device]ShaderModuleHandle),
	}
}

// NewShaderModuleFromFile reads the shader binary from disk. The file name is
// kept so the module can be reloaded when the file changes.
func NewShaderModuleFromFile(fileName string) (*ShaderModule, error) {
	code, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("shader module %s: %w", fileName, err)
	}
	sm := NewShaderModule(code)
	sm.fileName = fileName
	return sm, nil
}

// FileName returns the backing file, or "" for in-memory modules.
func (sm *ShaderModule) FileName() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.fileName
}

// RegisterObserver adds a consumer that must rebuild when the code changes.
func (sm *ShaderModule) RegisterObserver(observer Invalidatable) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.observers = append(sm.observers, observer)
}

// UnregisterObserver removes one matching registration.
func (sm *ShaderModule) UnregisterObserver(observer Invalidatable) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i, o := range sm.observers {
		if o == observer {
			sm.observers = append(sm.observers[:i], sm.observers[i+1:]...)
			return
		}
	}
}

// Validate creates the native module for the context's device if absent.
func (sm *ShaderModule) Validate(ctx *RenderContext) error {
	_, err := sm.Resolve(ctx)
	return err
}

// Resolve validates and returns the native module in one step. Pipeline
// validation uses this instead of Validate followed by Handle; a Reload
// landing between those two calls would drop the cache and turn a healthy
// frame into a not-validated error.
func (sm *ShaderModule) Resolve(ctx *RenderContext) (ShaderModuleHandle, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if handle, ok := sm.perDevice[ctx.Device]; ok {
		return handle, nil
	}
	handle, err := ctx.Device.CreateShaderModule(sm.code)
	if err != nil {
		return nil, fmt.Errorf("shader module creation failed: %w", err)
	}
	sm.perDevice[ctx.Device] = handle
	return handle, nil
}

// Handle returns the cached native module for the device.
func (sm *ShaderModule) Handle(device Device) (ShaderModuleHandle, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	handle, ok := sm.perDevice[device]
	if !ok {
		return nil, fmt.Errorf("shader module: %w", core.ErrNotValidated)
	}
	return handle, nil
}

// Reload re-reads the backing file, discards every cached native module and
// invalidates the pipelines observing this module. No-op error for in-memory
// modules.
func (sm *ShaderModule) Reload() error {
	sm.mu.Lock()
	if sm.fileName == "" {
		sm.mu.Unlock()
		return fmt.Errorf("shader module has no backing file")
	}
	code, err := os.ReadFile(sm.fileName)
	if err != nil {
		sm.mu.Unlock()
		return fmt.Errorf("shader module %s: %w", sm.fileName, err)
	}
	sm.code = code
	for device, handle := range sm.perDevice {
		device.DestroyShaderModule(handle)
		delete(sm.perDevice, device)
	}
	observers := make([]Invalidatable, len(sm.observers))
	copy(observers, sm.observers)
	sm.mu.Unlock()

	for _, o := range observers {
		o.Invalidate()
	}
	core.LogInfo("shader module %s reloaded", sm.fileName)
	return nil
}

// Destroy releases every native module.
func (sm *ShaderModule) Destroy() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for device, handle := range sm.perDevice {
		device.DestroyShaderModule(handle)
		delete(sm.perDevice, device)
	}
}
