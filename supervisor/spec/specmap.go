package spec

import "fmt"

// SpecsMap indexes child specs by id while preserving the order they were
// declared in, since RestForOne (spec.md §4.6) needs a deterministic
// "children started after this one" ordering that a bare Go map cannot
// provide.
type SpecsMap struct {
	byID  map[string]Spec
	order []string
}

// ToMap validates specs and indexes them by id, rejecting empty input,
// nil entries, duplicate ids, or any spec that fails Validate.
func ToMap(specs ...Spec) (SpecsMap, error) {
	if len(specs) == 0 {
		return SpecsMap{}, fmt.Errorf("supervisor must have at least one child spec")
	}
	sm := SpecsMap{byID: make(map[string]Spec, len(specs)), order: make([]string, 0, len(specs))}
	for _, s := range specs {
		if s == nil {
			return SpecsMap{}, fmt.Errorf("childspec must not be nil")
		}
		cs := s.ChildSpec()
		if err := Validate(cs); err != nil {
			return SpecsMap{}, err
		}
		id := cs.id()
		if _, duplicate := sm.byID[id]; duplicate {
			return SpecsMap{}, fmt.Errorf("duplicate childspec id %s", id)
		}
		sm.byID[id] = cs
		sm.order = append(sm.order, id)
	}
	return sm, nil
}

// Len reports how many child specs sm holds.
func (sm SpecsMap) Len() int {
	return len(sm.order)
}

// Order returns child ids in declaration order.
func (sm SpecsMap) Order() []string {
	return append([]string(nil), sm.order...)
}

// After returns the ids declared strictly after id, in order, for
// RestForOne's "restart this child and everything after it" semantics.
func (sm SpecsMap) After(id string) []string {
	for i, got := range sm.order {
		if got == id {
			return append([]string(nil), sm.order[i+1:]...)
		}
	}
	return nil
}

// Get returns the spec bound to id.
func (sm SpecsMap) Get(id string) (Spec, bool) {
	s, ok := sm.byID[id]
	return s, ok
}

// Delete removes id from sm, preserving the relative order of the rest.
func (sm *SpecsMap) Delete(id string) {
	delete(sm.byID, id)
	for i, got := range sm.order {
		if got == id {
			sm.order = append(sm.order[:i], sm.order[i+1:]...)
			return
		}
	}
}

// Add appends a validated spec to sm.
func (sm *SpecsMap) Add(s Spec) error {
	cs := s.ChildSpec()
	if err := Validate(cs); err != nil {
		return err
	}
	id := cs.id()
	if _, duplicate := sm.byID[id]; duplicate {
		return fmt.Errorf("duplicate childspec id %s", id)
	}
	if sm.byID == nil {
		sm.byID = make(map[string]Spec)
	}
	sm.byID[id] = cs
	sm.order = append(sm.order, id)
	return nil
}

func (sm SpecsMap) Type(id string) ChildType {
	if _, ok := sm.byID[id].(SupervisorSpec); ok {
		return TypeSupervisor
	}
	return TypeWorker
}

func (sm SpecsMap) Restart(id string) RestartPolicy {
	switch v := sm.byID[id].(type) {
	case WorkerSpec:
		return v.Restart
	case SupervisorSpec:
		return v.Restart
	}
	return RestartNever
}

func (sm SpecsMap) Shutdown(id string) int {
	switch v := sm.byID[id].(type) {
	case WorkerSpec:
		return v.Shutdown
	case SupervisorSpec:
		return v.Shutdown
	}
	return ShutdownKill
}

func (sm SpecsMap) Worker(id string) (WorkerSpec, bool) {
	v, ok := sm.byID[id].(WorkerSpec)
	return v, ok
}

func (sm SpecsMap) Supervisor(id string) (SupervisorSpec, bool) {
	v, ok := sm.byID[id].(SupervisorSpec)
	return v, ok
}
