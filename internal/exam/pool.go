package exam

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// PoolTable maps public pool codes to the exam codes they draw from.
// Version is bumped whenever membership changes.
type PoolTable struct {
	Version int                 `json:"version"`
	Pools   map[string][]string `json:"pools"`
}

// DefaultPools is the built-in pool table.
var DefaultPools = PoolTable{
	Version: 1,
	Pools: map[string][]string{
		"BIOLOGY":  {"BIO101", "BIO102", "BIO103", "BIO104", "BIO105"},
		"COMPSCI":  {"CSC101", "CSC102", "CSC103", "CSC104", "CSC105"},
		"APTITUDE": {"APT101", "APT102", "APT103", "APT104", "APT105"},
	},
}

// LoadPoolTable decodes a pool table and normalizes its codes to upper case.
func LoadPoolTable(r io.Reader) (PoolTable, error) {
	var pt PoolTable
	if err := json.NewDecoder(r).Decode(&pt); err != nil {
		return PoolTable{}, fmt.Errorf("decode pool table: %w", err)
	}
	if len(pt.Pools) == 0 {
		return PoolTable{}, fmt.Errorf("pool table has no pools")
	}
	out := PoolTable{Version: pt.Version, Pools: make(map[string][]string, len(pt.Pools))}
	for name, members := range pt.Pools {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" || len(members) == 0 {
			return PoolTable{}, fmt.Errorf("pool %q is empty", name)
		}
		norm := make([]string, 0, len(members))
		for _, m := range members {
			norm = append(norm, strings.ToUpper(strings.TrimSpace(m)))
		}
		out.Pools[name] = norm
	}
	return out, nil
}

// LoadPoolFile reads a pool table from a JSON file.
func LoadPoolFile(path string) (PoolTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return PoolTable{}, err
	}
	defer f.Close()
	return LoadPoolTable(f)
}

// IsPool reports whether code names a pool.
func (pt PoolTable) IsPool(code string) bool {
	_, ok := pt.Pools[code]
	return ok
}

// Resolve maps a pool code to one of its present and active members, chosen
// with pick(n) in [0,n). Codes that are not pools are returned unchanged.
func (pt PoolTable) Resolve(code string, exams map[string]Exam, pick func(n int) int) (string, error) {
	members, ok := pt.Pools[code]
	if !ok {
		return code, nil
	}
	live := make([]string, 0, len(members))
	for _, m := range members {
		if e, ok := exams[m]; ok && e.Active {
			live = append(live, m)
		}
	}
	if len(live) == 0 {
		return "", conflictErr(CodeNoActiveExam, "No active exam available in pool %s", code)
	}
	return live[pick(len(live))], nil
}
