package loader

import (
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/inherit"
)

type level int

const (
	levelUnit level = iota
	levelNamespace
	levelGroup
)

type scopeKey struct {
	level level
	name  string
}

// pluginIDs resolves a unit's plugin id through the unit → namespace → group
// chain; the nearest explicit declaration wins.
type pluginIDs struct {
	resolver   *inherit.Resolver[scopeKey, struct{}, string]
	parent     map[scopeKey]scopeKey
	namespaces map[string]string
	group      scopeKey
}

func newPluginIDs() *pluginIDs {
	p := &pluginIDs{
		parent:     make(map[scopeKey]scopeKey),
		namespaces: make(map[string]string),
	}
	p.resolver = inherit.New[scopeKey, struct{}, string](func(k scopeKey) []scopeKey {
		if parent, ok := p.parent[k]; ok {
			return []scopeKey{parent}
		}
		return nil
	})
	return p
}

func constant(id string) inherit.Func[struct{}, string] {
	if id == "" {
		return nil
	}
	return func(struct{}) (string, bool) { return id, true }
}

func (p *pluginIDs) setGroup(g GroupDeclaration) {
	p.group = scopeKey{levelGroup, g.Name}
	p.resolver.Declare(p.group, constant(g.PluginID))
}

func (p *pluginIDs) resolve(u UnitDeclaration) (string, error) {
	unit := scopeKey{levelUnit, u.Name}
	p.parent[unit] = p.group

	if ns := u.Namespace; ns.Name != "" {
		nsKey := scopeKey{levelNamespace, ns.Name}
		if ns.PluginID != "" {
			if prev, ok := p.namespaces[ns.Name]; ok && prev != ns.PluginID {
				return "", errors.Configuration(u.Name, "namespace %s declares plugin id %q, already declared as %q", ns.Name, ns.PluginID, prev)
			}
			p.namespaces[ns.Name] = ns.PluginID
			p.resolver.Declare(nsKey, constant(ns.PluginID))
		}
		p.parent[unit] = nsKey
		p.parent[nsKey] = p.group
	}
	// Parent edges changed above.
	p.resolver.ClearCache()
	p.resolver.Declare(unit, constant(u.PluginID))

	id, ok, err := p.resolver.Apply(unit, struct{}{})
	if err != nil {
		return "", &errors.ConfigurationError{Unit: u.Name, Reason: "cannot resolve plugin id", Err: err}
	}
	if !ok {
		return "", errors.Configuration(u.Name, "no plugin id declared at unit, namespace or group level")
	}
	return id, nil
}
