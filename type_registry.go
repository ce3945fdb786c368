package rpcflood

import (
	"sort"
	"sync"
)

var (
	atkRegistryMu sync.RWMutex
	atkRegistry   = make(map[string]Attack)
)

func RegisterAttacker(name string, atk Attack) {
	atkRegistryMu.Lock()
	defer atkRegistryMu.Unlock()
	atkRegistry[name] = atk
}

// AttackerFromString returns registered attacker prototype or nil
func AttackerFromString(name string) Attack {
	atkRegistryMu.RLock()
	defer atkRegistryMu.RUnlock()
	return atkRegistry[name]
}

func RegisteredAttackers() []string {
	atkRegistryMu.RLock()
	defer atkRegistryMu.RUnlock()
	names := make([]string, 0, len(atkRegistry))
	for name := range atkRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
