// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
)

// printResult writes v to w in the given format. With format "uri",
// it prints the "uri" field of v (or of each element, if v is a
// list), or the element itself if it is a scalar such as an id.
func printResult(w io.Writer, format string, v interface{}) error {
	switch format {
	case "yaml":
		buf, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding: %w", err)
		}
		_, err = w.Write(buf)
		return err
	case "uri":
		norm, err := normalize(v)
		if err != nil {
			return err
		}
		items, ok := norm.([]interface{})
		if !ok {
			items = []interface{}{norm}
		}
		for _, item := range items {
			if obj, ok := item.(map[string]interface{}); ok {
				item = obj["uri"]
			}
			if item == nil {
				continue
			}
			fmt.Fprintln(w, item)
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding: %w", err)
		}
		return nil
	}
}

// normalize converts v to the generic form produced by decoding JSON,
// keeping numbers exact.
func normalize(v interface{}) (interface{}, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var out interface{}
	err = dec.Decode(&out)
	return out, err
}
