package survey

import "strings"

// CapabilityIndex maps persisted capability text back to UI question names.
// Both the raw text and its markdown-stripped form resolve to the same question.
type CapabilityIndex struct {
	byStage map[string]map[string]string
	global  map[string]string
}

// CanonicalCapability strips markdown bold markers and surrounding whitespace.
func CanonicalCapability(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

func NewCapabilityIndex(d *Definition) *CapabilityIndex {
	idx := &CapabilityIndex{
		byStage: make(map[string]map[string]string, len(d.Stages)),
		global:  make(map[string]string),
	}
	for _, st := range d.Stages {
		m := make(map[string]string, len(st.Questions)*2)
		for _, q := range st.Questions {
			for _, key := range []string{q.Capability, CanonicalCapability(q.Capability)} {
				m[key] = q.Name
				if _, taken := idx.global[key]; !taken {
					idx.global[key] = q.Name
				}
			}
		}
		idx.byStage[st.Name] = m
	}
	return idx
}

// Lookup resolves (stage, capability) to a question name. The stage-scoped
// map wins; a capability stored under an unknown stage falls back to the global map.
func (idx *CapabilityIndex) Lookup(stage, capability string) (string, bool) {
	if idx == nil {
		return "", false
	}
	if m, ok := idx.byStage[stage]; ok {
		if name, ok := m[capability]; ok {
			return name, true
		}
		if name, ok := m[CanonicalCapability(capability)]; ok {
			return name, true
		}
	}
	if name, ok := idx.global[capability]; ok {
		return name, true
	}
	name, ok := idx.global[CanonicalCapability(capability)]
	return name, ok
}
