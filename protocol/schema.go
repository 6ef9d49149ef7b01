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

// Package protocol is the schema kernel: it parses a DTCP schema document
// and turns it into typed command and event descriptors (spec component A).
package protocol

// Document is the root of a DTCP schema document: an ordered list of
// domains, each a named namespace of types, commands and events.
type Document struct {
	Version Version  `json:"version"`
	Domains []Domain `json:"domains"`
}

// Version identifies the schema document's protocol version.
type Version struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
}

// Domain is a named namespace holding types, commands and events.
type Domain struct {
	Domain       string    `json:"domain"`
	Description  string    `json:"description,omitempty"`
	Experimental bool      `json:"experimental,omitempty"`
	Deprecated   bool      `json:"deprecated,omitempty"`
	Dependencies []string  `json:"dependencies,omitempty"`
	Types        []TypeDef `json:"types,omitempty"`
	Commands     []CmdDef  `json:"commands,omitempty"`
	Events       []EvtDef  `json:"events,omitempty"`
}

// TypeDef is a named type: an alias, an enum, an object with properties, or
// an array.
type TypeDef struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Enum        []string       `json:"enum,omitempty"`
	Properties  []ParameterDef `json:"properties,omitempty"`
	Items       *ItemsDef      `json:"items,omitempty"`
}

// ItemsDef describes the element type of an array-typed field.
type ItemsDef struct {
	Type string `json:"type,omitempty"`
	Ref  string `json:"ref,omitempty"`
}

// ParameterDef is one field of a command's parameter/return list, or one
// property of an object type. Ref, when set, is a qualified "Domain.Type"
// reference to a TypeDef elsewhere in the document.
type ParameterDef struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	Ref         string    `json:"ref,omitempty"`
	Optional    bool      `json:"optional,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *ItemsDef `json:"items,omitempty"`
}

// CmdDef is a command: a method name, its parameter schema and its return
// schema.
type CmdDef struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Experimental bool           `json:"experimental,omitempty"`
	Deprecated   bool           `json:"deprecated,omitempty"`
	Parameters   []ParameterDef `json:"parameters,omitempty"`
	Returns      []ParameterDef `json:"returns,omitempty"`
}

// EvtDef is an event: a method name and its parameter schema.
type EvtDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  []ParameterDef `json:"parameters,omitempty"`
}
