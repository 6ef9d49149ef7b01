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
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentMetaSchema constrains the shape a DTCP schema document must take
// before the kernel attempts to build descriptors from it: every domain
// needs a name, every command/event needs a name, every parameter needs a
// name. This catches a malformed schema document at load time rather than
// letting a bad descriptor fail mysteriously on first use.
const documentMetaSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://browserkit.dev/schema/document.json",
  "type": "object",
  "required": ["domains"],
  "properties": {
    "domains": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["domain"],
        "properties": {
          "domain": {"type": "string", "minLength": 1},
          "commands": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "parameters": {"type": "array", "items": {"$ref": "#/$defs/parameter"}},
                "returns": {"type": "array", "items": {"$ref": "#/$defs/parameter"}}
              }
            }
          },
          "events": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "parameters": {"type": "array", "items": {"$ref": "#/$defs/parameter"}}
              }
            }
          }
        }
      }
    }
  },
  "$defs": {
    "parameter": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1}
      }
    }
  }
}`

// validateDocument checks raw against documentMetaSchema before the kernel
// unmarshals it into typed Domain/CmdDef/EvtDef values.
func validateDocument(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	metaSchema, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(documentMetaSchema)))
	if err != nil {
		return fmt.Errorf("protocol: invalid built-in meta-schema: %w", err)
	}
	const schemaID = "https://browserkit.dev/schema/document.json"
	if err := compiler.AddResource(schemaID, metaSchema); err != nil {
		return fmt.Errorf("protocol: register meta-schema: %w", err)
	}
	sch, err := compiler.Compile(schemaID)
	if err != nil {
		return fmt.Errorf("protocol: compile meta-schema: %w", err)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("protocol: schema document is not valid JSON: %w", err)
	}
	if err := sch.Validate(instance); err != nil {
		return fmt.Errorf("protocol: schema document failed validation: %w", err)
	}
	return nil
}
