// Package localvm provides the built-in virtual machine simulator, the
// reference "api" provider compiled into the host. State lives in a
// mutex-guarded map; nothing leaves the process.
package localvm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stratovia/cpi/pkg/extension"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
	"github.com/stratovia/cpi/pkg/response"
	"github.com/stratovia/cpi/pkg/validation"
)

const (
	defaultMemoryMB = int64(1024)
	defaultCPUs     = int64(1)

	StateStopped = "stopped"
	StateRunning = "running"
)

var (
	_ protocol.Extension        = (*Extension)(nil)
	_ protocol.SettingsProvider = (*Extension)(nil)
	_ protocol.InstallTester    = (*Extension)(nil)
	_ protocol.Versioner        = (*Extension)(nil)
)

// VM is one simulated machine. Values handed out by actions are copies;
// the live record never leaves the guarded map.
type VM struct {
	Name      string    `json:"name"`
	MemoryMB  int64     `json:"memory_mb"`
	CPUs      int64     `json:"cpus"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Extension implements the provider contract plus all three optional
// capabilities.
type Extension struct {
	actions *extension.ActionSet

	mutex sync.Mutex
	vms   map[string]*VM
}

// NewExtension builds the simulator with an empty machine inventory.
func NewExtension() *Extension {
	ext := &Extension{vms: make(map[string]*VM)}

	set := extension.NewActionSet()

	set.Register(models.ActionDefinition{
		Name:        "create_vm",
		Description: "Create a new virtual machine in the stopped state",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "unique machine name", models.ParamTypeString),
			models.OptionalParamDefault("memory_mb", "memory size in megabytes", models.ParamTypeNumber, defaultMemoryMB),
			models.OptionalParamDefault("cpus", "number of virtual CPUs", models.ParamTypeNumber, defaultCPUs),
		},
	}, ext.createVM)

	set.Register(models.ActionDefinition{
		Name:        "start_vm",
		Description: "Start a stopped virtual machine",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "machine name", models.ParamTypeString),
		},
	}, ext.startVM)

	set.Register(models.ActionDefinition{
		Name:        "stop_vm",
		Description: "Stop a running virtual machine",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "machine name", models.ParamTypeString),
		},
	}, ext.stopVM)

	set.Register(models.ActionDefinition{
		Name:        "delete_vm",
		Description: "Delete a virtual machine regardless of state",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "machine name", models.ParamTypeString),
		},
	}, ext.deleteVM)

	set.Register(models.ActionDefinition{
		Name:        "get_vm",
		Description: "Return one virtual machine",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "machine name", models.ParamTypeString),
		},
	}, ext.getVM)

	set.Register(models.ActionDefinition{
		Name:        "list_vms",
		Description: "List all virtual machines sorted by name",
	}, ext.listVMs)

	set.Register(models.ActionDefinition{
		Name:        "has_vm",
		Description: "Report whether a virtual machine exists",
		Parameters: []models.ActionParameter{
			models.RequiredParam("name", "machine name", models.ParamTypeString),
		},
	}, ext.hasVM)

	ext.actions = set

	return ext
}

func (e *Extension) Name() string         { return "localvm" }
func (e *Extension) ProviderType() string { return "api" }
func (e *Extension) Actions() []string    { return e.actions.Actions() }

func (e *Extension) ActionDefinition(name string) (models.ActionDefinition, bool) {
	return e.actions.ActionDefinition(name)
}

func (e *Extension) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	return e.actions.Execute(ctx, action, args)
}

func (e *Extension) DefaultSettings() map[string]any {
	return map[string]any{
		"memory_mb": defaultMemoryMB,
		"cpus":      defaultCPUs,
	}
}

func (e *Extension) TestInstall(ctx context.Context) (any, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return map[string]any{"status": "ok", "vms": len(e.vms)}, nil
}

func (e *Extension) Version() string { return "0.3.0" }

func (e *Extension) createVM(ctx context.Context, args map[string]any) (any, error) {
	name, err := validation.ExtractString(args, "name")
	if err != nil {
		return nil, err
	}

	memory, ok, err := validation.ExtractOptionalInt(args, "memory_mb")
	if err != nil {
		return nil, err
	}

	if !ok {
		memory = defaultMemoryMB
	}

	cpus, ok, err := validation.ExtractOptionalInt(args, "cpus")
	if err != nil {
		return nil, err
	}

	if !ok {
		cpus = defaultCPUs
	}

	if memory <= 0 {
		return nil, fmt.Errorf("Parameter 'memory_mb' must be positive, got %d", memory)
	}

	if cpus <= 0 {
		return nil, fmt.Errorf("Parameter 'cpus' must be positive, got %d", cpus)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, exists := e.vms[name]; exists {
		return nil, fmt.Errorf("VM '%s' already exists", name)
	}

	vm := &VM{
		Name:      name,
		MemoryMB:  memory,
		CPUs:      cpus,
		State:     StateStopped,
		CreatedAt: time.Now().UTC(),
	}
	e.vms[name] = vm

	return response.Success(*vm), nil
}

func (e *Extension) startVM(ctx context.Context, args map[string]any) (any, error) {
	name, err := validation.ExtractString(args, "name")
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	vm, exists := e.vms[name]
	if !exists {
		return nil, fmt.Errorf("VM '%s' not found", name)
	}

	if vm.State == StateRunning {
		return nil, fmt.Errorf("VM '%s' is already running", name)
	}

	vm.State = StateRunning

	return response.Success(*vm), nil
}

func (e *Extension) stopVM(ctx context.Context, args map[string]any) (any, error) {
	name, err := validation.ExtractString(args, "name")
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	vm, exists := e.vms[name]
	if !exists {
		return nil, fmt.Errorf("VM '%s' not found", name)
	}

	if vm.State != StateRunning {
		return nil, fmt.Errorf("VM '%s' is not running", name)
	}

	vm.State = StateStopped

	return response.Success(*vm), nil
}

func (e *Extension) deleteVM(ctx context.Context, args map[string]any) (any, error) {
	name, err := validation.ExtractString(args, "name")
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, exists := e.vms[name]; !exists {
		return nil, fmt.Errorf("VM '%s' not found", name)
	}

	delete(e.vms, name)

	return response.Success(nil), nil
}

func (e *Extension) getVM(ctx context.Context, args map[string]any) (any, error) {
	name, err := validation.ExtractString(args, "name")
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	vm, exists := e.vms[name]
	if !exists {
		return nil, fmt.Errorf("VM '%s' not found", name)
	}

	return response.Success(*vm), nil
}

func (e *Extension) listVMs(ctx context.Context, args map[string]any) (any, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	vms := make([]VM, 0, len(e.vms))
	for _, vm := range e.vms {
		vms = append(vms, *vm)
	}

	sort.Slice(vms, func(i, j int) bool { return vms[i].Name < vms[j].Name })

	return response.Success(map[string]any{
		"vms":   vms,
		"count": len(vms),
	}), nil
}

func (e *Extension) hasVM(ctx context.Context, args map[string]any) (any, error) {
	name, err := validation.ExtractString(args, "name")
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	_, exists := e.vms[name]

	return response.Bool(exists), nil
}
