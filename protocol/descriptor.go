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
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ReturnKind discriminates the shape of a command's decoded reply. A
// command's return value is never forced through a single uniform
// callback signature: some commands return nothing, some a single named
// value, some a tuple of named values.
type ReturnKind int

const (
	// ReturnUnit means the command's reply carries no return values.
	ReturnUnit ReturnKind = iota
	// ReturnSingle means the reply decodes to exactly one named value.
	ReturnSingle
	// ReturnTuple means the reply decodes to more than one named value.
	ReturnTuple
)

// Result is the decoded outcome of a command reply. For ReturnSingle, Values
// holds exactly one entry keyed by that value's name. For ReturnTuple, one
// entry per declared return parameter. For ReturnUnit, Values is empty.
type Result struct {
	Kind   ReturnKind
	Values map[string]json.RawMessage
}

// Single returns the lone value of a ReturnSingle result, decoded into out.
func (r Result) Single(out interface{}) error {
	for _, v := range r.Values {
		return json.Unmarshal(v, out)
	}
	return fmt.Errorf("protocol: no return value present")
}

// Field decodes the named tuple field into out. Missing optional fields
// leave out untouched and return nil.
func (r Result) Field(name string, out interface{}) error {
	raw, ok := r.Values[name]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// CommandDescriptor is the precomputed encode/decode recipe for one command:
// identity, parameter schema, return schema, and the decode rule mapping a
// JSON reply's "result" object back to a Result (spec §3, §4.A).
type CommandDescriptor struct {
	Domain     string
	Name       string // protocol (lowerCamelCase) command name
	GoName     string // escaped, idiomatic identifier
	Method     string // "<Domain>.<command>"
	Parameters []ParameterDef
	Returns    []ParameterDef
	Kind       ReturnKind
}

// Encode validates params against the command's parameter schema (best
// effort: required names present) and marshals them to a params object
// ready to be embedded in a JSON-RPC request.
func (c *CommandDescriptor) Encode(params map[string]interface{}) (json.RawMessage, error) {
	for _, p := range c.Parameters {
		if p.Optional {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			return nil, fmt.Errorf("protocol: %s: missing required parameter %q", c.Method, p.Name)
		}
	}
	if params == nil {
		return json.RawMessage("{}"), nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("protocol: %s: encode params: %w", c.Method, err)
	}
	return raw, nil
}

// Decode turns a JSON-RPC response's "result" object into a Result,
// according to c.Kind. It rejects shapes that do not match the declared
// return schema.
func (c *CommandDescriptor) Decode(result json.RawMessage) (Result, error) {
	res := Result{Kind: c.Kind, Values: map[string]json.RawMessage{}}
	if c.Kind == ReturnUnit {
		return res, nil
	}
	if len(result) == 0 {
		return Result{}, fmt.Errorf("protocol: %s: expected a result object, got none", c.Method)
	}
	if !gjson.ValidBytes(result) {
		return Result{}, fmt.Errorf("protocol: %s: malformed result JSON", c.Method)
	}
	parsed := gjson.ParseBytes(result)
	if !parsed.IsObject() {
		return Result{}, fmt.Errorf("protocol: %s: expected a JSON object result", c.Method)
	}
	for _, r := range c.Returns {
		field := parsed.Get(r.Name)
		if !field.Exists() {
			if r.Optional {
				continue
			}
			return Result{}, fmt.Errorf("protocol: %s: missing required return value %q", c.Method, r.Name)
		}
		res.Values[r.Name] = json.RawMessage(field.Raw)
	}
	return res, nil
}

// EventDescriptor is the precomputed decode recipe for one event: identity,
// parameter schema, and the decode rule turning a notification's "params"
// subtree into an event value (spec §3, §4.A).
type EventDescriptor struct {
	Domain     string
	Name       string
	GoName     string
	Method     string
	Parameters []ParameterDef
}

// Decode turns a notification's params object into a map of named values.
// Decoding is total over the documented schema: unknown extra fields are
// ignored, missing optional fields are skipped, and a missing required
// field is a DecodeError-class failure.
func (e *EventDescriptor) Decode(params json.RawMessage) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	if len(e.Parameters) == 0 {
		return out, nil
	}
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if !gjson.ValidBytes(params) {
		return nil, fmt.Errorf("protocol: %s: malformed params JSON", e.Method)
	}
	parsed := gjson.ParseBytes(params)
	for _, p := range e.Parameters {
		field := parsed.Get(p.Name)
		if !field.Exists() {
			if p.Optional {
				continue
			}
			return nil, fmt.Errorf("protocol: %s: missing required event field %q", e.Method, p.Name)
		}
		out[p.Name] = json.RawMessage(field.Raw)
	}
	return out, nil
}
