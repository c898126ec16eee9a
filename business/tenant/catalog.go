// Package tenant maps restaurant names to their record partition and reward settings.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"restoPlay/domain"
)

var partitionPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// entry mirrors one restaurant in the catalog file.
type entry struct {
	TableName      string   `json:"tableName"`
	Offers         []string `json:"offers"`
	WinProbability float64  `json:"winProbability"`
}

// Catalog is built once at startup and never mutated afterwards.
type Catalog struct {
	byKey       map[string]domain.Tenant
	byPartition map[string]domain.Tenant
}

func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenant catalog: %w", err)
	}

	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	entries := map[string]entry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode tenant catalog: %w", err)
	}

	tenants := make([]domain.Tenant, 0, len(entries))
	for name, e := range entries {
		tenants = append(tenants, domain.Tenant{
			Name:           name,
			Partition:      e.TableName,
			Offers:         e.Offers,
			WinProbability: e.WinProbability,
		})
	}

	return New(tenants...)
}

func New(tenants ...domain.Tenant) (*Catalog, error) {
	c := &Catalog{
		byKey:       make(map[string]domain.Tenant, len(tenants)),
		byPartition: make(map[string]domain.Tenant, len(tenants)),
	}

	for _, t := range tenants {
		key := normalizeKey(t.Name)
		if key == "" {
			return nil, fmt.Errorf("tenant with empty name")
		}
		if _, ok := c.byKey[key]; ok {
			return nil, fmt.Errorf("duplicate tenant %q", t.Name)
		}
		if t.WinProbability < 0 || t.WinProbability > 1 {
			return nil, fmt.Errorf("tenant %q: win probability %v out of range [0,1]", t.Name, t.WinProbability)
		}
		if !partitionPattern.MatchString(t.Partition) {
			return nil, fmt.Errorf("tenant %q: invalid table name %q", t.Name, t.Partition)
		}
		if other, ok := c.byPartition[t.Partition]; ok {
			return nil, fmt.Errorf("tenants %q and %q share table %q", other.Name, t.Name, t.Partition)
		}

		t.Key = key
		t.Offers = append([]string(nil), t.Offers...)
		c.byKey[key] = t
		c.byPartition[t.Partition] = t
	}

	return c, nil
}

// Resolve looks a tenant up by restaurant name, ignoring case.
func (c *Catalog) Resolve(name string) (domain.Tenant, error) {
	key := normalizeKey(name)
	if key == "" {
		return domain.Tenant{}, domain.ErrInvalidTenant
	}

	t, ok := c.byKey[key]
	if !ok {
		return domain.Tenant{}, domain.ErrInvalidTenant
	}

	return t, nil
}

// ResolvePartition looks a tenant up by the table name handed out at registration.
func (c *Catalog) ResolvePartition(partition string) (domain.Tenant, error) {
	t, ok := c.byPartition[strings.TrimSpace(partition)]
	if !ok {
		return domain.Tenant{}, domain.ErrInvalidTenant
	}

	return t, nil
}

func (c *Catalog) Partitions() []string {
	out := make([]string, 0, len(c.byPartition))
	for p := range c.byPartition {
		out = append(out, p)
	}
	sort.Strings(out)

	return out
}

func (c *Catalog) List() []domain.Tenant {
	out := make([]domain.Tenant, 0, len(c.byKey))
	for _, t := range c.byKey {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}

func ValidPartition(name string) bool {
	return partitionPattern.MatchString(name)
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
