package wslscript

// This file queries the installed WSL distributions from the Lxss registry
// key and produces the stable presentation ordering used by callers that
// populate selection lists.

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/0xrawsec/golang-utils/log"
	"github.com/google/uuid"
	"github.com/ubuntu/decorate"
)

// DistroID is the GUID identifying an installed WSL distribution.
type DistroID struct {
	id uuid.UUID
}

// ParseDistroID parses a GUID with or without enclosing braces.
func ParseDistroID(s string) (DistroID, error) {
	id, err := uuid.Parse(strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}"))
	if err != nil {
		return DistroID{}, fmt.Errorf("invalid distribution GUID %q: %v", s, err)
	}
	return DistroID{id: id}, nil
}

// String formats the GUID the way the Lxss registry stores it: lowercase
// and enclosed in braces.
func (d DistroID) String() string {
	return "{" + d.id.String() + "}"
}

// Distros is a read-only snapshot of the installed WSL distributions.
// It is rebuilt on demand and never cached across runs.
type Distros struct {
	// List maps each distribution to its display name.
	List map[DistroID]string
	// Default is the distribution marked as default, if any.
	Default *DistroID
}

// DistroEntry is one (id, display name) pair of a sorted listing.
type DistroEntry struct {
	ID   DistroID
	Name string
}

// SortedPairs returns the distributions ordered for presentation: the
// default distribution first, the rest lexicographically by display name.
func (d Distros) SortedPairs() []DistroEntry {
	entries := make([]DistroEntry, 0, len(d.List))
	for id, name := range d.List {
		entries = append(entries, DistroEntry{ID: id, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool {
		if d.Default != nil {
			if entries[i].ID == *d.Default {
				return true
			}
			if entries[j].ID == *d.Default {
				return false
			}
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Typical Microsoft {8-4-4-4-12} hex code
// example: {ee8aef7a-846f-4561-a028-79504ce65cd3}
var distroKeyRegex = regexp.MustCompile(`^\{[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}\}$`)

// QueryDistros reads the installed WSL distributions and the default
// distribution marker from the Lxss registry key.
//
// It is analogous to
//
//	`wsl.exe --list`
func QueryDistros(ctx context.Context) (distros Distros, err error) {
	defer decorate.OnError(&err, "failed to obtain list of registered distros")

	lxssKey, err := selectBackend(ctx).OpenLxssRegistry(".")
	if err != nil {
		return distros, RegistryError{Err: err}
	}
	defer lxssKey.Close()

	subkeys, err := lxssKey.SubkeyNames()
	if err != nil {
		return distros, RegistryError{Err: err}
	}

	distros.List = make(map[DistroID]string, len(subkeys))
	for _, skName := range subkeys {
		if !distroKeyRegex.MatchString(skName) {
			continue // Not a WSL distro
		}
		id, err := ParseDistroID(skName)
		if err != nil {
			log.Warnf("failed to parse registry entry %s: %v", skName, err)
			continue
		}
		name, err := distroDisplayName(ctx, skName)
		if err != nil {
			log.Warnf("%v", err)
			continue
		}
		distros.List[id] = name
	}

	if s, err := lxssKey.Field("DefaultDistribution"); err == nil {
		if id, err := ParseDistroID(s); err == nil {
			distros.Default = &id
		}
	}

	return distros, nil
}

// DistroName resolves a distribution GUID to its display name.
func DistroName(ctx context.Context, id DistroID) (string, error) {
	return distroDisplayName(ctx, id.String())
}

// distroDisplayName returns the value of DistributionName under the given
// Lxss subkey.
func distroDisplayName(ctx context.Context, registryDir string) (name string, err error) {
	defer decorate.OnError(&err, "could not read name of distro %s", registryDir)

	key, err := selectBackend(ctx).OpenLxssRegistry(registryDir)
	if err != nil {
		return "", RegistryError{Err: err}
	}
	defer key.Close()

	name, err = key.Field("DistributionName")
	if err != nil {
		return "", RegistryError{Err: err}
	}
	return name, nil
}
