package proxmox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// VMResource is one guest row of GET /cluster/resources?type=vm.
type VMResource struct {
	VMID     int    `json:"vmid"`
	Name     string `json:"name"`
	Node     string `json:"node"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Tags     string `json:"tags"`
	Template int    `json:"template"`
}

// IsTemplate reports whether the resource is a VM template.
func (r VMResource) IsTemplate() bool {
	return r.Template == 1
}

// TagList returns the resource's tags split and normalized. The API
// joins tags with ";".
func (r VMResource) TagList() []string {
	if r.Tags == "" {
		return nil
	}
	return splitTags(r.Tags)
}

// HasTag reports whether the resource carries the given tag.
func (r VMResource) HasTag(tag string) bool {
	for _, t := range r.TagList() {
		if t == tag {
			return true
		}
	}
	return false
}

// VMConfig is the key-value configuration of one guest as returned by
// GET /nodes/{node}/qemu/{vmid}/config. The API mixes strings and
// numbers in its values; everything is normalized to strings here.
type VMConfig map[string]string

// UnmarshalJSON flattens the API's mixed-type config object.
func (c *VMConfig) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			if t {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
		case nil:
			// dropped
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	*c = out
	return nil
}

// Int returns the named config value as an integer, or 0 if absent or
// non-numeric.
func (c VMConfig) Int(key string) int {
	n, err := strconv.Atoi(c[key])
	if err != nil {
		return 0
	}
	return n
}

// TagList returns the guest's tags split and normalized.
func (c VMConfig) TagList() []string {
	if c["tags"] == "" {
		return nil
	}
	return splitTags(c["tags"])
}

// Serial returns the serial field of the guest's smbios1 value, the
// slot the config fingerprint is stored in. Empty when unset.
func (c VMConfig) Serial() string {
	return ParseKeyValues(c["smbios1"])["serial"]
}

// ParseKeyValues parses a Proxmox property string ("a=1,b=2,flag") into
// a map. Bare flags map to "1".
func ParseKeyValues(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if k, v, found := strings.Cut(part, "="); found {
			out[k] = v
		} else {
			out[part] = "1"
		}
	}
	return out
}

// TaskStatus is the poll result of GET /nodes/{node}/tasks/{upid}/status.
type TaskStatus struct {
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus"`
}

// Finished reports whether the task has stopped running.
func (s TaskStatus) Finished() bool {
	return s.Status == "stopped"
}

// OK reports whether a finished task succeeded.
func (s TaskStatus) OK() bool {
	return s.ExitStatus == "OK"
}

// Storage is the metadata of GET /storage/{storage}.
type Storage struct {
	Storage string `json:"storage"`
	Type    string `json:"type"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

func splitTags(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
