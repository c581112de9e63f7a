// Package bootcfg renders a group's Butane template pipeline into the
// Ignition artifact one instance boots from.
//
// The pipeline is strict end to end: an unresolved template parameter,
// an unreadable template file, or any transpiler report entry aborts the
// render. Output is byte-deterministic for identical inputs, which is
// what makes fingerprint comparison meaningful.
package bootcfg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/clarketm/json"
	butane "github.com/coreos/butane/config"
	"github.com/coreos/butane/config/common"
	ignutil "github.com/coreos/ignition/v2/config/util"
	ignition "github.com/coreos/ignition/v2/config/v3_4/types"
	"github.com/vincent-petithory/dataurl"

	"github.com/pvefleet/pvefleet/internal/config"
	"github.com/pvefleet/pvefleet/internal/ident"
)

// RenderedConfig is the outcome of one ordinal's template pipeline.
type RenderedConfig struct {
	// Params is the fully substituted parameter map, reserved instance
	// keys included.
	Params map[string]string

	// Primary is the transpiled Ignition of the primary template.
	Primary []byte

	// Overlays are the transpiled overlay Ignitions, in merge order.
	Overlays [][]byte

	// Artifact is the exact byte sequence shipped to the instance:
	// Primary verbatim when there are no overlays, otherwise the merge
	// wrapper referencing every document.
	Artifact []byte
}

// Renderer loads and renders Butane templates. Relative template paths
// resolve against root, typically the fleet file's directory.
type Renderer struct {
	root string
}

func NewRenderer(root string) *Renderer {
	return &Renderer{root: root}
}

// Render runs the full pipeline for one ordinal: substitute parameters
// into the primary and every overlay, transpile each Butane document to
// Ignition, and assemble the shipped artifact.
//
// The parameter map always carries instance_id, instance_name,
// instance_count, and instance_ordinal; these reserved keys win over
// user parameters of the same name.
func (r *Renderer) Render(bc config.BootConfig, id ident.Identity, count, ordinal int) (*RenderedConfig, error) {
	params := make(map[string]string, len(bc.Params)+4)
	for k, v := range bc.Params {
		params[k] = v
	}
	params["instance_id"] = strconv.Itoa(id.VMID)
	params["instance_name"] = id.Name
	params["instance_count"] = strconv.Itoa(count)
	params["instance_ordinal"] = strconv.Itoa(ordinal)

	primary, err := r.renderOne(bc.Template, params)
	if err != nil {
		return nil, err
	}

	rc := &RenderedConfig{Params: params, Primary: primary}
	for _, path := range bc.Overlays {
		doc, err := r.renderOne(path, params)
		if err != nil {
			return nil, err
		}
		rc.Overlays = append(rc.Overlays, doc)
	}

	rc.Artifact, err = assemble(rc, bc.IgnitionVersion)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// renderOne loads, substitutes, and transpiles a single Butane template.
func (r *Renderer) renderOne(path string, params map[string]string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.root, path)
	}
	src, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}

	tmpl, err := template.New(filepath.Base(path)).
		Option("missingkey=error").
		Funcs(funcMap()).
		Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", path, err)
	}

	out, rpt, err := butane.TranslateBytes(buf.Bytes(), common.TranslateBytesOptions{})
	if err != nil {
		return nil, fmt.Errorf("transpiling %s: %w", path, err)
	}
	// Warnings fail too: an artifact the transpiler complains about must
	// never reach an instance.
	if len(rpt.Entries) > 0 {
		return nil, fmt.Errorf("transpiling %s: %s", path, rpt.String())
	}
	return out, nil
}

// assemble produces the shipped artifact. A lone primary ships verbatim.
// Overlays turn the artifact into an Ignition merge config listing every
// document as a data URL, primary first; merge semantics belong to
// Ignition, where later entries override earlier ones.
func assemble(rc *RenderedConfig, version string) ([]byte, error) {
	if len(rc.Overlays) == 0 {
		return rc.Primary, nil
	}

	docs := make([][]byte, 0, len(rc.Overlays)+1)
	docs = append(docs, rc.Primary)
	docs = append(docs, rc.Overlays...)

	merge := make([]ignition.Resource, 0, len(docs))
	for _, doc := range docs {
		merge = append(merge, ignition.Resource{
			Source: ignutil.StrToPtr(dataurl.EncodeBytes(doc)),
		})
	}

	wrapper := ignition.Config{
		Ignition: ignition.Ignition{
			Version: version,
			Config:  ignition.IgnitionConfig{Merge: merge},
		},
	}
	out, err := json.Marshal(wrapper)
	if err != nil {
		return nil, fmt.Errorf("encoding merge wrapper: %w", err)
	}
	return out, nil
}
