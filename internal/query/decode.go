package query

import (
	"encoding/json"
	"fmt"

	"github.com/hanpama/contentgraph/internal/identifier"
)

type namedNode struct {
	Name string `json:"name"`
}

type fieldNode struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type authoringItem struct {
	ItemID   string    `json:"itemId"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Version  int       `json:"version"`
	Template namedNode `json:"template"`
	Language namedNode `json:"language"`
	Fields   struct {
		Nodes []fieldNode `json:"nodes"`
	} `json:"fields"`
}

type liveItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Version  int         `json:"version"`
	Template namedNode   `json:"template"`
	Language namedNode   `json:"language"`
	Fields   []fieldNode `json:"fields"`
}

// DecodeAuthoring maps an alias-keyed authoring response onto projections.
// Aliases whose lookup returned null are omitted from the result.
func DecodeAuthoring(data json.RawMessage) (map[string]Projection, error) {
	var byAlias map[string]*authoringItem
	if err := json.Unmarshal(data, &byAlias); err != nil {
		return nil, fmt.Errorf("decode authoring: %w", err)
	}
	out := make(map[string]Projection, len(byAlias))
	for alias, item := range byAlias {
		if item == nil {
			continue
		}
		id, ok := identifier.Normalize(item.ItemID)
		if !ok {
			return nil, fmt.Errorf("decode authoring: alias %s: malformed itemId %q", alias, item.ItemID)
		}
		fields := make([]Field, len(item.Fields.Nodes))
		for i, n := range item.Fields.Nodes {
			fields[i] = Field{Name: n.Name, Value: n.Value}
		}
		out[alias] = Projection{
			ID:           id,
			Name:         item.Name,
			Path:         item.Path,
			TemplateName: item.Template.Name,
			Language:     item.Language.Name,
			Version:      item.Version,
			Fields:       fields,
			Source:       SourceAuthoring,
		}
	}
	return out, nil
}

// DecodeLive maps an alias-keyed live response onto projections. Aliases
// whose lookup returned null are omitted from the result.
func DecodeLive(data json.RawMessage) (map[string]Projection, error) {
	var byAlias map[string]*liveItem
	if err := json.Unmarshal(data, &byAlias); err != nil {
		return nil, fmt.Errorf("decode live: %w", err)
	}
	out := make(map[string]Projection, len(byAlias))
	for alias, item := range byAlias {
		if item == nil {
			continue
		}
		id, ok := identifier.Normalize(item.ID)
		if !ok {
			return nil, fmt.Errorf("decode live: alias %s: malformed id %q", alias, item.ID)
		}
		fields := make([]Field, len(item.Fields))
		for i, n := range item.Fields {
			fields[i] = Field{Name: n.Name, Value: n.Value}
		}
		out[alias] = Projection{
			ID:           id,
			Name:         item.Name,
			Path:         item.Path,
			TemplateName: item.Template.Name,
			Language:     item.Language.Name,
			Version:      item.Version,
			Fields:       fields,
			Source:       SourceLive,
		}
	}
	return out, nil
}

// DecodePathLookup maps an alias-keyed path-lookup response onto identifiers.
// Aliases whose lookup returned null, or whose item carries no usable
// identifier, are omitted.
func DecodePathLookup(data json.RawMessage) (map[string]identifier.ID, error) {
	var byAlias map[string]*struct {
		ItemID string `json:"itemId"`
	}
	if err := json.Unmarshal(data, &byAlias); err != nil {
		return nil, fmt.Errorf("decode path lookup: %w", err)
	}
	out := make(map[string]identifier.ID, len(byAlias))
	for alias, item := range byAlias {
		if item == nil {
			continue
		}
		if id, ok := identifier.Normalize(item.ItemID); ok {
			out[alias] = id
		}
	}
	return out, nil
}
