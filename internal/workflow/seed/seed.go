// Package seed loads workflow and status templates from a YAML file into the template store.
// Templates are matched by name, so running the same file twice creates nothing the second time.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

const listPageSize = 100

// File is the YAML document accepted by the seeder.
type File struct {
	StatusTemplates []StatusTemplate `yaml:"statusTemplates"`
	Templates       []Template       `yaml:"templates"`
}

// Template describes one workflow template.
type Template struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Visibility  string `yaml:"visibility"`
	Steps       []Step `yaml:"steps"`
}

// Step describes one template step. Order may be omitted to number steps by position.
type Step struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
}

// StatusTemplate describes one status template.
type StatusTemplate struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Default     bool         `yaml:"default"`
	Items       []StatusItem `yaml:"items"`
}

// StatusItem describes one status item.
type StatusItem struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	Order       int    `yaml:"order"`
	Initial     bool   `yaml:"initial"`
	Final       bool   `yaml:"final"`
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("seed: document is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: decode document: %w", err)
	}
	return &f, nil
}

// LoadFile reads and parses a seed document from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// TemplateAuthor is the subset of the workflow engine the seeder needs.
type TemplateAuthor interface {
	ListTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.WorkflowTemplate], error)
	ListStatusTemplates(ctx context.Context, page, size *int) (*model.PageResult[model.StatusTemplate], error)
	CreateTemplate(ctx context.Context, req *model.CreateTemplateDTO, callerID string) (*model.WorkflowTemplate, error)
	CreateStatusTemplate(ctx context.Context, req *model.CreateStatusTemplateDTO, callerID string) (*model.StatusTemplate, error)
}

// Result counts what a seeding run did.
type Result struct {
	TemplatesCreated       int
	TemplatesSkipped       int
	StatusTemplatesCreated int
	StatusTemplatesSkipped int
}

// Seeder creates the templates of a seed document that do not exist yet.
type Seeder struct {
	author TemplateAuthor
	actor  string
}

// NewSeeder creates a Seeder. Created templates record actor as their creator.
func NewSeeder(author TemplateAuthor, actor string) *Seeder {
	return &Seeder{author: author, actor: actor}
}

// Apply creates status templates first, then workflow templates. It stops at the first failure.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	existingStatus, err := s.statusTemplateNames(ctx)
	if err != nil {
		return res, err
	}
	for _, st := range f.StatusTemplates {
		if _, ok := existingStatus[st.Name]; ok {
			slog.Debug("status template already present, skipping", "name", st.Name)
			res.StatusTemplatesSkipped++
			continue
		}
		created, err := s.author.CreateStatusTemplate(ctx, st.toDTO(), s.actor)
		if err != nil {
			return res, fmt.Errorf("failed to seed status template %q: %w", st.Name, err)
		}
		existingStatus[st.Name] = struct{}{}
		res.StatusTemplatesCreated++
		slog.Info("seeded status template", "name", st.Name, "id", created.ID)
	}

	existing, err := s.templateNames(ctx)
	if err != nil {
		return res, err
	}
	for _, t := range f.Templates {
		if _, ok := existing[t.Name]; ok {
			slog.Debug("template already present, skipping", "name", t.Name)
			res.TemplatesSkipped++
			continue
		}
		created, err := s.author.CreateTemplate(ctx, t.toDTO(), s.actor)
		if err != nil {
			return res, fmt.Errorf("failed to seed template %q: %w", t.Name, err)
		}
		existing[t.Name] = struct{}{}
		res.TemplatesCreated++
		slog.Info("seeded template", "name", t.Name, "id", created.ID)
	}

	return res, nil
}

func (s *Seeder) templateNames(ctx context.Context) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	size := listPageSize
	for page := 1; ; page++ {
		p := page
		result, err := s.author.ListTemplates(ctx, &p, &size)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		for _, t := range result.Items {
			names[t.Name] = struct{}{}
		}
		if len(result.Items) < size || int64(page*size) >= result.TotalCount {
			return names, nil
		}
	}
}

func (s *Seeder) statusTemplateNames(ctx context.Context) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	size := listPageSize
	for page := 1; ; page++ {
		p := page
		result, err := s.author.ListStatusTemplates(ctx, &p, &size)
		if err != nil {
			return nil, fmt.Errorf("failed to list status templates: %w", err)
		}
		for _, st := range result.Items {
			names[st.Name] = struct{}{}
		}
		if len(result.Items) < size || int64(page*size) >= result.TotalCount {
			return names, nil
		}
	}
}

func (t Template) toDTO() *model.CreateTemplateDTO {
	steps := make([]model.TemplateStepDTO, len(t.Steps))
	for i, step := range t.Steps {
		steps[i] = model.TemplateStepDTO{Name: step.Name, Description: step.Description, StepOrder: step.Order}
	}
	visibility := model.Visibility(t.Visibility)
	if visibility == "" {
		visibility = model.VisibilityTeam
	}
	return &model.CreateTemplateDTO{
		Name:        t.Name,
		Description: t.Description,
		Visibility:  visibility,
		Steps:       steps,
	}
}

func (st StatusTemplate) toDTO() *model.CreateStatusTemplateDTO {
	items := make([]model.StatusItemDTO, len(st.Items))
	for i, item := range st.Items {
		items[i] = model.StatusItemDTO{
			Name:        item.Name,
			Description: item.Description,
			Color:       item.Color,
			OrderIndex:  item.Order,
			IsInitial:   item.Initial,
			IsFinal:     item.Final,
		}
	}
	return &model.CreateStatusTemplateDTO{
		Name:        st.Name,
		Description: st.Description,
		IsDefault:   st.Default,
		Items:       items,
	}
}
