package comfy

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Node is one entry in the server's node-graph mapping.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Workflow is the opaque node graph the server executes, keyed by node id.
type Workflow map[string]*Node

// ParseWorkflow loads a workflow template from raw JSON.
func ParseWorkflow(raw []byte) (Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	return wf, nil
}

// Clone deep-copies the workflow so one template serves many builds.
func (w Workflow) Clone() Workflow {
	out := make(Workflow, len(w))
	for id, node := range w {
		inputs := make(map[string]any, len(node.Inputs))
		for k, v := range node.Inputs {
			inputs[k] = v
		}
		out[id] = &Node{ClassType: node.ClassType, Inputs: inputs}
	}
	return out
}

// nodesByClass returns the ids of every node with the class type, in id order
// so "first match" is stable.
func (w Workflow) nodesByClass(classType string) []string {
	var ids []string
	for id, node := range w {
		if node.ClassType == classType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Well-known class types the template setters search for.
const (
	classTextEncode  = "CLIPTextEncode"
	classSampler     = "KSampler"
	classSaveImage   = "SaveImage"
	classLatentImage = "EmptyLatentImage"
)

// Builder parameterizes a workflow template. Without explicit node bindings
// it locates nodes by class type: the first text encoder is the positive
// prompt, the second the negative, and the sampler, save, and latent nodes
// must each match exactly once. Specialized constructors bind known node ids
// for their template family instead.
type Builder struct {
	wf   Workflow
	bind map[string]string // role -> node id, empty means class search
	seed func() int64
}

// Roles a builder can bind a node id to.
const (
	rolePositive = "positive"
	roleNegative = "negative"
	roleSeed     = "seed"
	roleSave     = "save"
	roleLatent   = "latent"
)

// NewBuilder wraps a template using class-type search and a time-derived seed.
func NewBuilder(wf Workflow) *Builder {
	return &Builder{
		wf:   wf.Clone(),
		bind: map[string]string{},
		seed: timeSeed,
	}
}

// NewPortraitBuilder binds the character reference-sheet template family.
// The seed is fixed so the same character renders identically across runs.
func NewPortraitBuilder(wf Workflow) *Builder {
	return &Builder{
		wf: wf.Clone(),
		bind: map[string]string{
			rolePositive: "6",
			roleNegative: "7",
			roleSeed:     "3",
			roleSave:     "9",
			roleLatent:   "5",
		},
		seed: func() int64 { return 123456789 },
	}
}

// NewSceneBuilder binds the scene illustration template family with a
// time-derived seed so every batch run varies.
func NewSceneBuilder(wf Workflow) *Builder {
	return &Builder{
		wf: wf.Clone(),
		bind: map[string]string{
			rolePositive: "6",
			roleNegative: "7",
			roleSeed:     "3",
			roleSave:     "9",
			roleLatent:   "5",
		},
		seed: timeSeed,
	}
}

func timeSeed() int64 {
	return time.Now().UnixNano() % 1_000_000_000_000
}

// Workflow returns the parameterized graph for submission.
func (b *Builder) Workflow() Workflow { return b.wf }

func (b *Builder) node(role, classType string, index, expect int) (*Node, error) {
	if id, ok := b.bind[role]; ok && id != "" {
		node, ok := b.wf[id]
		if !ok {
			return nil, fmt.Errorf("workflow has no node %s for %s", id, role)
		}
		return node, nil
	}

	ids := b.wf.nodesByClass(classType)
	if expect > 0 && len(ids) != expect {
		return nil, fmt.Errorf("workflow has %d %s nodes, want %d", len(ids), classType, expect)
	}
	if index >= len(ids) {
		return nil, fmt.Errorf("workflow has no %s node for %s", classType, role)
	}
	return b.wf[ids[index]], nil
}

func (b *Builder) SetPositivePrompt(text string) error {
	node, err := b.node(rolePositive, classTextEncode, 0, 0)
	if err != nil {
		return err
	}
	node.Inputs["text"] = text
	return nil
}

func (b *Builder) SetNegativePrompt(text string) error {
	node, err := b.node(roleNegative, classTextEncode, 1, 0)
	if err != nil {
		return err
	}
	node.Inputs["text"] = text
	return nil
}

func (b *Builder) SetSeed(seed int64) error {
	node, err := b.node(roleSeed, classSampler, 0, 1)
	if err != nil {
		return err
	}
	node.Inputs["seed"] = seed
	return nil
}

func (b *Builder) SetFilenamePrefix(prefix string) error {
	node, err := b.node(roleSave, classSaveImage, 0, 1)
	if err != nil {
		return err
	}
	node.Inputs["filename_prefix"] = prefix
	return nil
}

func (b *Builder) SetImageSize(width, height int) error {
	node, err := b.node(roleLatent, classLatentImage, 0, 1)
	if err != nil {
		return err
	}
	node.Inputs["width"] = width
	node.Inputs["height"] = height
	return nil
}

// SceneInput is what one scene contributes to a workflow build.
type SceneInput struct {
	MainPrompt       string
	CharacterPrompts map[string]string
	Act              string
	Prefix           string
}

// BuildFromScene fills the template from a scene: the positive prompt is the
// main prompt plus every character prompt joined with comma separators, the
// filename prefix is <project>/<act>/<prefix>, and the seed follows the
// builder's policy.
func (b *Builder) BuildFromScene(scene SceneInput, negative, projectName string) (Workflow, error) {
	parts := make([]string, 0, 1+len(scene.CharacterPrompts))
	if strings.TrimSpace(scene.MainPrompt) != "" {
		parts = append(parts, scene.MainPrompt)
	}
	names := make([]string, 0, len(scene.CharacterPrompts))
	for name := range scene.CharacterPrompts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := strings.TrimSpace(scene.CharacterPrompts[name]); p != "" {
			parts = append(parts, p)
		}
	}

	if err := b.SetPositivePrompt(strings.Join(parts, ", ")); err != nil {
		return nil, err
	}
	if negative != "" {
		if err := b.SetNegativePrompt(negative); err != nil {
			return nil, err
		}
	}
	if err := b.SetSeed(b.seed()); err != nil {
		return nil, err
	}

	prefixParts := make([]string, 0, 3)
	if projectName != "" {
		prefixParts = append(prefixParts, projectName)
	}
	if scene.Act != "" {
		prefixParts = append(prefixParts, scene.Act)
	}
	if scene.Prefix != "" {
		prefixParts = append(prefixParts, scene.Prefix)
	}
	if len(prefixParts) > 0 {
		if err := b.SetFilenamePrefix(strings.Join(prefixParts, "/")); err != nil {
			return nil, err
		}
	}
	return b.wf, nil
}
