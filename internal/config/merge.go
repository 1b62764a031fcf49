package config

import "fmt"

// provenance maps an entity identity ("view:stg.users", "attachment:pg") to
// every file that contributed a definition for it. Built during merge,
// consumed by validation for duplicate-name reporting, then discarded.
type provenance map[string][]string

func provKey(kind, name string) string { return kind + ":" + name }

func (p provenance) record(kind, name, file string) {
	key := provKey(kind, name)
	p[key] = append(p[key], file)
}

// files returns the recorded sources for an entity, or nil.
func (p provenance) files(kind, name string) []string {
	return p[provKey(kind, name)]
}

// entityLists maps top-level document keys to the entity kind and the field
// holding its identity. These lists concatenate across files instead of
// last-writer-wins; uniqueness is enforced over the whole concatenation.
var entityLists = map[string]struct{ kind, nameField string }{
	"views":           {"view", "name"},
	"secrets":         {"secret", "name"},
	"catalogs":        {"catalog", "name"},
	"semantic_models": {"semantic model", "name"},
}

// attachmentGroups are the list keys under "attachments".
var attachmentGroups = []string{"duckdb", "sqlite", "postgres"}

// mergeDocument merges one file's fields into the accumulator. Scalars:
// src wins. Maps: recursive merge. Entity lists: concatenation, with each
// appended item's identity recorded against file.
func mergeDocument(dst, src map[string]any, file string, prov provenance) error {
	for key, val := range src {
		if key == "imports" {
			continue
		}

		if spec, ok := entityLists[key]; ok {
			if items, ok := val.([]any); ok {
				dst[key] = appendEntities(asList(dst[key]), items, spec.kind, spec.nameField, file, prov)
				continue
			}
		}

		if key == "attachments" {
			if srcGroups, ok := val.(map[string]any); ok {
				dstGroups, _ := dst[key].(map[string]any)
				if dstGroups == nil {
					dstGroups = make(map[string]any)
				}
				if err := mergeAttachments(dstGroups, srcGroups, file, prov); err != nil {
					return err
				}
				dst[key] = dstGroups
				continue
			}
		}

		if srcMap, ok := val.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMap(dstMap, srcMap)
				continue
			}
		}

		dst[key] = val
	}
	return nil
}

func mergeAttachments(dst, src map[string]any, file string, prov provenance) error {
	for _, group := range attachmentGroups {
		raw, ok := src[group]
		if !ok || raw == nil {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			return &ParseError{File: file, Err: fmt.Errorf("attachments.%s must be a list", group)}
		}
		dst[group] = appendEntities(asList(dst[group]), items, "attachment", "alias", file, prov)
	}
	// Non-group keys under attachments follow plain merge rules.
	for key, val := range src {
		if isAttachmentGroup(key) {
			continue
		}
		dst[key] = val
	}
	return nil
}

func isAttachmentGroup(key string) bool {
	for _, g := range attachmentGroups {
		if key == g {
			return true
		}
	}
	return false
}

// mergeMap is the generic recursive merge for non-entity maps: nested maps
// merge, everything else is last-writer-wins.
func mergeMap(dst, src map[string]any) {
	for key, val := range src {
		if srcMap, ok := val.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMap(dstMap, srcMap)
				continue
			}
		}
		dst[key] = val
	}
}

func appendEntities(dst, items []any, kind, nameField, file string, prov provenance) []any {
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			prov.record(kind, entityIdentity(m, nameField), file)
		}
		dst = append(dst, item)
	}
	return dst
}

// entityIdentity extracts the identity string of one entity map. Views are
// keyed by schema-qualified name.
func entityIdentity(m map[string]any, nameField string) string {
	name := stringField(m, nameField)
	if schema := stringField(m, "schema"); schema != "" {
		return schema + "." + name
	}
	return name
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func asList(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	return nil
}
