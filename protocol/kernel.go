/*
 * browserkit - a DevTools control protocol driver for Chromium-family browsers
 * Copyright (C) 2026 The browserkit Authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"unicode"
)

//go:embed data/schema.json
var defaultSchemaJSON []byte

// goReserved is the set of Go keywords, plus the predeclared identifiers
// error, nil, true and false, that protocol names are not used as
// verbatim. A protocol name colliding with one is escaped by appending a
// trailing underscore, a deterministic and stable scheme (spec §4.A
// "Naming").
var goReserved = map[string]bool{
	"break": true, "default": true, "func": true, "interface": true, "select": true,
	"case": true, "defer": true, "go": true, "map": true, "struct": true,
	"chan": true, "else": true, "goto": true, "package": true, "switch": true,
	"const": true, "fallthrough": true, "if": true, "range": true, "type": true,
	"continue": true, "for": true, "import": true, "return": true, "var": true,
	"error": true, "nil": true, "true": true, "false": true,
}

// escapeGoName turns a lowerCamelCase protocol name into an exported Go
// identifier, escaping reserved words with a trailing underscore.
func escapeGoName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	out := string(r)
	if goReserved[name] {
		out += "_"
	}
	return out
}

// Catalog is the output of the schema kernel: for each domain, an ordered
// catalog of commands and events rendered into descriptors, plus fast
// lookup by method name (spec §4.A).
type Catalog struct {
	Domains  []string
	Commands map[string]*CommandDescriptor // method name -> descriptor
	Events   map[string]*EventDescriptor   // method name -> descriptor

	commandOrder []string
	eventOrder   []string
}

// CommandsInOrder returns the catalog's command descriptors in the order
// they were declared in the schema document. Determinism (spec §4.A) means
// two Load calls over the same bytes always return the same order.
func (c *Catalog) CommandsInOrder() []*CommandDescriptor {
	out := make([]*CommandDescriptor, 0, len(c.commandOrder))
	for _, m := range c.commandOrder {
		out = append(out, c.Commands[m])
	}
	return out
}

// EventsInOrder is the event analogue of CommandsInOrder.
func (c *Catalog) EventsInOrder() []*EventDescriptor {
	out := make([]*EventDescriptor, 0, len(c.eventOrder))
	for _, m := range c.eventOrder {
		out = append(out, c.Events[m])
	}
	return out
}

// Load parses a DTCP schema document and builds its descriptor catalog.
// Generation depends only on the schema bytes: calling Load twice with
// identical input yields catalogs with identical method sets, ordering and
// descriptor contents (spec §4.A "Determinism").
func Load(raw []byte) (*Catalog, error) {
	if err := validateDocument(raw); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("protocol: decode schema document: %w", err)
	}

	cat := &Catalog{
		Commands: map[string]*CommandDescriptor{},
		Events:   map[string]*EventDescriptor{},
	}
	for _, dom := range doc.Domains {
		cat.Domains = append(cat.Domains, dom.Domain)
		for _, cmd := range dom.Commands {
			method := dom.Domain + "." + cmd.Name
			kind := ReturnUnit
			switch len(cmd.Returns) {
			case 0:
				kind = ReturnUnit
			case 1:
				kind = ReturnSingle
			default:
				kind = ReturnTuple
			}
			cat.Commands[method] = &CommandDescriptor{
				Domain:     dom.Domain,
				Name:       cmd.Name,
				GoName:     escapeGoName(cmd.Name),
				Method:     method,
				Parameters: cmd.Parameters,
				Returns:    cmd.Returns,
				Kind:       kind,
			}
			cat.commandOrder = append(cat.commandOrder, method)
		}
		for _, evt := range dom.Events {
			method := dom.Domain + "." + evt.Name
			cat.Events[method] = &EventDescriptor{
				Domain:     dom.Domain,
				Name:       evt.Name,
				GoName:     escapeGoName(evt.Name),
				Method:     method,
				Parameters: evt.Parameters,
			}
			cat.eventOrder = append(cat.eventOrder, method)
		}
	}
	return cat, nil
}

// LoadDefault parses the schema document embedded in the binary at build
// time. This is the "load the schema at startup" alternative spec §9
// sanctions in place of a separate build-time codegen step.
func LoadDefault() (*Catalog, error) {
	return Load(defaultSchemaJSON)
}
